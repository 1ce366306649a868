package contract

import (
	"fmt"
	"os"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

// Violation is one validation failure, addressed by document path.
type Violation struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

func (v Violation) String() string { return v.Path + ": " + v.Reason }

// Config carries the safety rules the validator enforces. Passed explicitly so
// different platforms can be validated concurrently with different rules.
type Config struct {
	// Denylist holds lowercase substrings of mutating verbs. A command
	// containing any of them fails the whole contract, not just the entry.
	Denylist []string
}

// DefaultDenylist covers the configuration-write primitives common to the
// supported CLI dialects.
var DefaultDenylist = []string{
	"configure", "config t", "write", "copy", "delete", "erase",
	"reload", "boot", "rename", "upgrade", "clear", "shutdown", "commit",
}

// DefaultConfig returns a Config with the default denylist.
func DefaultConfig() Config {
	return Config{Denylist: append([]string(nil), DefaultDenylist...)}
}

// Validator checks raw contract documents against the structural and safety
// rules and produces frozen Contract models.
type Validator struct {
	cfg Config
}

// NewValidator returns a Validator with the given safety configuration.
func NewValidator(cfg Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateFile reads and validates a contract document from disk.
func (v *Validator) ValidateFile(path string) (*Contract, []Violation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read contract: %w", err)
	}
	c, violations := v.Validate(data)
	return c, violations, nil
}

// Validate checks a raw contract document. It returns either a validated
// Contract with its content hash, or the list of violations — never both and
// never a partial model. Structural violations short-circuit: safety rules are
// only evaluated on a structurally sound document.
func (v *Validator) Validate(data []byte) (*Contract, []Violation) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, []Violation{{Path: "(document)", Reason: "not valid YAML: " + err.Error()}}
	}
	if len(root.Content) == 0 {
		return nil, []Violation{{Path: "(document)", Reason: "document is empty"}}
	}
	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil, []Violation{{Path: "(document)", Reason: "top level must be a mapping"}}
	}

	c := &Contract{}
	var structural []Violation
	var docDenied []string
	seen := map[string]bool{}

	for i := 0; i+1 < len(doc.Content); i += 2 {
		key, val := doc.Content[i], doc.Content[i+1]
		seen[key.Value] = true
		switch key.Value {
		case "name":
			c.name = val.Value
		case "platform":
			c.platform = val.Value
		case "revision":
			c.revision = val.Value
		case "safety":
			docDenied = append(docDenied, decodeSafety(val, &structural)...)
		case "commands":
			c.groups = decodeCommands(val, &structural)
		default:
			structural = append(structural, Violation{
				Path:   key.Value,
				Reason: "unknown top-level key",
			})
		}
	}
	for _, req := range []string{"name", "platform", "revision", "commands"} {
		if !seen[req] {
			structural = append(structural, Violation{Path: req, Reason: "required key missing"})
		}
	}
	if len(structural) > 0 {
		return nil, structural
	}

	// Safety pass: accumulate every hit, fail the contract as a whole.
	denylist := append(append([]string(nil), v.cfg.Denylist...), docDenied...)
	var safety []Violation
	for _, g := range c.groups {
		for i, e := range g.Entries {
			if hit := screen(e.Command, denylist); hit != "" {
				safety = append(safety, Violation{
					Path:   fmt.Sprintf("commands.%s[%d]", g.Category, i),
					Reason: fmt.Sprintf("denylisted verb %q in command %q", hit, e.Command),
				})
			}
		}
	}
	if len(safety) > 0 {
		return nil, safety
	}

	c.hash = canonicalHash(c)
	return c, nil
}

// decodeSafety reads the optional safety block: a mapping whose only
// permitted key is blocked_keywords, a list of strings merged into the
// validator's denylist for this document.
func decodeSafety(node *yaml.Node, out *[]Violation) []string {
	if node.Kind != yaml.MappingNode {
		*out = append(*out, Violation{Path: "safety", Reason: "must be a mapping"})
		return nil
	}
	var denied []string
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		if key.Value != "blocked_keywords" {
			*out = append(*out, Violation{Path: "safety." + key.Value, Reason: "unknown key"})
			continue
		}
		if val.Kind != yaml.SequenceNode {
			*out = append(*out, Violation{Path: "safety.blocked_keywords", Reason: "must be a list"})
			continue
		}
		for _, item := range val.Content {
			denied = append(denied, item.Value)
		}
	}
	return denied
}

// decodeCommands walks the commands mapping preserving category order and
// duplicate commands. Groups must be lists: a keyed map would silently drop
// duplicates and lose ordering, so it is a structural violation.
func decodeCommands(node *yaml.Node, out *[]Violation) []CommandGroup {
	if node.Kind != yaml.MappingNode {
		*out = append(*out, Violation{Path: "commands", Reason: "must be a mapping of category to command list"})
		return nil
	}
	var groups []CommandGroup
	for i := 0; i+1 < len(node.Content); i += 2 {
		cat, list := node.Content[i], node.Content[i+1]
		path := "commands." + cat.Value
		if list.Kind != yaml.SequenceNode {
			*out = append(*out, Violation{Path: path, Reason: "command group must be a list, not a map"})
			continue
		}
		g := CommandGroup{Category: cat.Value}
		for j, item := range list.Content {
			entry, ok := decodeEntry(item, fmt.Sprintf("%s[%d]", path, j), out)
			if ok {
				g.Entries = append(g.Entries, entry)
			}
		}
		groups = append(groups, g)
	}
	return groups
}

// boolLookalikes are the plain scalars a YAML 1.1 reader resolves as
// booleans. yaml.v3 itself only resolves true/false that way and leaves
// yes/no/on/off as strings, so the token set is checked explicitly: an
// unquoted command equal to any of them is an authoring error whichever way
// a parser resolves it.
var boolLookalikes = map[string]bool{
	"true": true, "false": true,
	"yes": true, "no": true,
	"on": true, "off": true,
}

// decodeEntry reads one command entry. Exactly two keys are permitted. A
// "command" value written as an unquoted yes/no/on/off/true/false is an
// authoring error, not a command, and is rejected here rather than silently
// stringified.
func decodeEntry(node *yaml.Node, path string, out *[]Violation) (CommandEntry, bool) {
	var entry CommandEntry
	if node.Kind != yaml.MappingNode {
		*out = append(*out, Violation{Path: path, Reason: "entry must be a mapping"})
		return entry, false
	}
	ok := true
	hasCommand := false
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		switch key.Value {
		case "command":
			hasCommand = true
			if val.Tag == "!!bool" || (val.Style == 0 && boolLookalikes[strings.ToLower(val.Value)]) {
				*out = append(*out, Violation{
					Path:   path + ".command",
					Reason: fmt.Sprintf("unquoted boolean lookalike %q; quote the command string", val.Value),
				})
				ok = false
				continue
			}
			if val.Tag != "!!str" || val.Value == "" {
				*out = append(*out, Violation{Path: path + ".command", Reason: "must be a non-empty string"})
				ok = false
				continue
			}
			entry.Command = val.Value
		case "optional":
			var b bool
			if val.Tag != "!!bool" || val.Decode(&b) != nil {
				*out = append(*out, Violation{Path: path + ".optional", Reason: "must be a boolean"})
				ok = false
				continue
			}
			entry.Optional = b
		default:
			*out = append(*out, Violation{Path: path + "." + key.Value, Reason: "unknown entry key"})
			ok = false
		}
	}
	if !hasCommand {
		*out = append(*out, Violation{Path: path, Reason: "missing command"})
		ok = false
	}
	return entry, ok
}

// Screen reports the first denylisted token found in command, or "" if the
// command is clean. Matching is case-insensitive substring, as in the probe
// schema's blocked_keywords semantics. Also used to screen session preamble
// commands before they are sent.
func Screen(command string, denylist []string) string {
	return screen(command, denylist)
}

func screen(command string, denylist []string) string {
	lowered := strings.ToLower(command)
	for _, word := range denylist {
		if word != "" && strings.Contains(lowered, strings.ToLower(word)) {
			return word
		}
	}
	return ""
}
