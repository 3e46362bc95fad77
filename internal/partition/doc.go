// Package partition manages the numbered, fixed-capacity folders that hold
// unrated images.
//
// Partitions are named 1, 2, 3, ... under images_unrated; each may have a
// sibling <N>_thumb folder that is never itself a partition. Only the highest
// partition accepts new files ([Manager.AllocateSlot]); a partition is removed
// once rating drains it ([Manager.RemoveIfEmpty]) and its number is not
// reused. [Manager.WithLock] serializes ingestion and rating.
package partition
