package matchcore

import "matchcore/profile"

// Compatible implements the pure predicate over two candidate facts. It
// never touches the stores directly; callers are expected to have already
// confirmed both users are waiting, fresh, and not live-matched (the
// engine does this as part of candidate selection). The History Ledger
// check arrives pre-computed as historyBlocks; live-match state is not an
// input to this predicate.
func Compatible(a, b profile.Facts, historyBlocks bool) bool {
	if historyBlocks {
		return false
	}
	if (a.Gender != profile.GenderMale && a.Gender != profile.GenderFemale) ||
		(b.Gender != profile.GenderMale && b.Gender != profile.GenderFemale) {
		return false
	}
	if a.Gender == b.Gender {
		return false
	}
	if !a.AcceptsGender(b.Gender) || !b.AcceptsGender(a.Gender) {
		return false
	}
	if !a.AcceptsAge(b.Age) || !b.AcceptsAge(a.Age) {
		return false
	}
	if !profile.CitiesOverlap(a, b) {
		return false
	}
	return true
}
