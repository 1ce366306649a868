// Package contract holds the validated command-set model and its validator.
//
// A Contract is the only source of commands the probe engine will execute.
// Its fields are unexported on purpose: the sole way to obtain a Contract is
// through Validator.Validate, so every command that reaches a device has
// passed the structural and safety checks and carries a content hash.
package contract

// CommandEntry is one command as declared in the contract document.
type CommandEntry struct {
	Command  string // exact text sent to the device, never rewritten
	Optional bool   // parse failure on this command's output is never escalated
}

// CommandGroup is a named category with its ordered command list.
type CommandGroup struct {
	Category string
	Entries  []CommandEntry
}

// Contract is a validated, hashed command set for one platform.
type Contract struct {
	name     string
	platform string
	revision string
	hash     string
	groups   []CommandGroup
}

func (c *Contract) Name() string     { return c.name }
func (c *Contract) Platform() string { return c.platform }
func (c *Contract) Revision() string { return c.revision }

// Hash is the canonical content hash, "sha256:<hex>". Computed at validation
// time; a frozen contract whose bytes change later will recompute differently.
func (c *Contract) Hash() string { return c.hash }

// Groups returns the command groups in declared order. The returned slice is
// a copy; the model itself is read-only after validation.
func (c *Contract) Groups() []CommandGroup {
	out := make([]CommandGroup, len(c.groups))
	for i, g := range c.groups {
		out[i] = CommandGroup{Category: g.Category, Entries: append([]CommandEntry(nil), g.Entries...)}
	}
	return out
}

// Len is the total number of command entries across all groups.
func (c *Contract) Len() int {
	n := 0
	for _, g := range c.groups {
		n += len(g.Entries)
	}
	return n
}
