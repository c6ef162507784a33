// Copyright (c) 2026 Voxboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package records

import "context"

// Repository reads dashboard records.
type Repository interface {

	/*
		ListRecords returns one page of a kind's records, newest first.

		Returns:
		  - []*Record: The page
		  - int: Total number of records of that kind
		  - error: dberr-wrapped failures
	*/
	ListRecords(context context.Context, kind Kind, limit, offset int) ([]*Record, int, error)

	// CountRecords returns the number of records of a kind.
	CountRecords(context context.Context, kind Kind) (int, error)
}
