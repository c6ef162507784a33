// Copyright (c) 2026 Voxboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package schema holds table and column names for the SQL written by hand in
// the store packages, so a migration rename touches one place.
package schema
