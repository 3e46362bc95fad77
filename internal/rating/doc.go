// Package rating serves unrated images to raters and applies their
// decisions.
//
// [Service.NextBatch] hands each user images they have not been given yet,
// newest partition first. [Service.ResolveImage] chooses between thumbnail,
// original and compressed bodies. [Service.Rate] performs the rating
// transition under the partition lock: move to the rating folder, update the
// status log, evict from the served set and clean up emptied partitions.
package rating
