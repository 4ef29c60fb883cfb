// Package neighbors rebuilds per-user top-K neighbor lists from a persisted
// similarity matrix.
//
// Each matrix row is decoded, undefined entries are dropped, and the rest is
// stable-sorted by similarity descending and cut to K. Ties keep column
// order, so the lower peer index wins.
//
//	tbl, err := neighbors.LoadFile("similarity.csv", 50)
//	if err != nil {
//	    return err
//	}
//	for _, e := range tbl.Neighbors(7) {
//	    fmt.Println(e.Peer, e.Value)
//	}
//
// Matrices written with zstd compression are detected by their frame magic
// and decompressed on the fly.
package neighbors
