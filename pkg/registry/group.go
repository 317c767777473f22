package registry

import (
	"strings"

	"github.com/m4mm0n/amFTPd-sub003/pkg/dupe"
)

// GroupReleases returns every release credited to group across all
// sections, newest first. Group attribution is read from the release's
// stored Group field rather than re-derived from the name, since nuked
// or renamed releases may not carry a parseable group suffix.
func (r *ReleaseRegistry) GroupReleases(group string) []*dupe.Release {
	all, _ := r.store.Search("*", 0)
	var out []*dupe.Release
	for _, rel := range all {
		if strings.EqualFold(rel.Group, group) {
			out = append(out, rel)
		}
	}
	sortByLastUpdatedDesc(out)
	return out
}
