package aggregate

import (
	"strconv"
	"strings"

	"github.com/SHUNKURANARI/excel/internal/core"
)

// GroupKey identifies one bucket. Keys built from the same field values
// in the same order are equal.
type GroupKey string

// KeyFunc derives the group key of a record.
type KeyFunc func(core.WorkRecord) GroupKey

// KeyOf joins quoted parts so that a "|" inside a value cannot make two
// different tuples collide.
func KeyOf(parts ...string) GroupKey {
	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = strconv.Quote(p)
	}
	return GroupKey(strings.Join(quoted, "|"))
}

// ByDateSiteShiftRoleRate groups the per-day line items of an invoice.
func ByDateSiteShiftRoleRate(r core.WorkRecord) GroupKey {
	return KeyOf(r.Date.String(), r.Site, r.Shift, r.Role, r.Rate.String())
}

// BySite groups per site.
func BySite(r core.WorkRecord) GroupKey {
	return KeyOf(r.Site)
}

// BySiteRole groups the attendance sheet rows.
func BySiteRole(r core.WorkRecord) GroupKey {
	return KeyOf(r.Site, r.Role)
}
