package matchcore

import "matchcore/matchcore/locks"

// lockTable aliases the sharded advisory lock table so the rest of this
// package can refer to it without repeating the import path at every call
// site.
type lockTable = locks.Table

func newLockTable() *lockTable { return locks.New() }
