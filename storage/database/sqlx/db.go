// Package sqlxrepos implements the persistence interfaces on PostgreSQL.
package sqlxrepos

import "github.com/lib/pq"

func intArray(xs []int) pq.Int64Array {
	arr := make(pq.Int64Array, 0, len(xs))
	for _, x := range xs {
		arr = append(arr, int64(x))
	}
	return arr
}

func fromInt64Array(arr pq.Int64Array) []int {
	if len(arr) == 0 {
		return nil
	}
	xs := make([]int, 0, len(arr))
	for _, x := range arr {
		xs = append(xs, int(x))
	}
	return xs
}
