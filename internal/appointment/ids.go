package appointment

import (
	"strconv"
	"strings"
)

var prefixes = []string{
	PrefixHospital,
	PrefixDepartment,
	PrefixDoctor,
	PrefixPatient,
	PrefixAppointment,
}

// idCounters hands out prefix+n identifiers, strictly increasing per prefix.
type idCounters map[string]int

func newIDCounters() idCounters {
	c := make(idCounters, len(prefixes))
	for _, p := range prefixes {
		c[p] = 1
	}
	return c
}

func (c idCounters) next(prefix string) string {
	n := c[prefix]
	if n < 1 {
		n = 1
	}
	c[prefix] = n + 1
	return prefix + strconv.Itoa(n)
}

// observe bumps the counter past id's numeric suffix.
// Ids that do not carry the prefix or a numeric suffix are ignored.
func (c idCounters) observe(prefix, id string) {
	n, ok := parseID(prefix, id)
	if !ok {
		return
	}
	if n+1 > c[prefix] {
		c[prefix] = n + 1
	}
}

func parseID(prefix, id string) (int, bool) {
	suffix, ok := strings.CutPrefix(id, prefix)
	if !ok || suffix == "" {
		return 0, false
	}
	n, err := strconv.Atoi(suffix)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
