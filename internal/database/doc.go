// Package database stores the rating history in SQLite.
//
// Each rating transition appends a row recording who rated which image and
// when. The status log stays authoritative for image state; this history
// feeds statistics and the dataset export. The database uses WAL mode and
// creates its schema on open.
package database
