package contract

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// canonicalDoc is the hashing representation of a validated contract. Struct
// field order fixes the key order, so the hash is stable under key reordering
// inside a document entry but sensitive to list order, which is semantically
// meaningful.
type canonicalDoc struct {
	Name     string           `json:"name"`
	Platform string           `json:"platform"`
	Revision string           `json:"revision"`
	Groups   []canonicalGroup `json:"groups"`
}

type canonicalGroup struct {
	Category string           `json:"category"`
	Entries  []canonicalEntry `json:"entries"`
}

type canonicalEntry struct {
	Command  string `json:"command"`
	Optional bool   `json:"optional"`
}

// canonicalHash computes "sha256:<hex>" over the canonical JSON encoding of
// the model.
func canonicalHash(c *Contract) string {
	doc := canonicalDoc{
		Name:     c.name,
		Platform: c.platform,
		Revision: c.revision,
		Groups:   make([]canonicalGroup, 0, len(c.groups)),
	}
	for _, g := range c.groups {
		cg := canonicalGroup{Category: g.Category, Entries: make([]canonicalEntry, 0, len(g.Entries))}
		for _, e := range g.Entries {
			cg.Entries = append(cg.Entries, canonicalEntry{Command: e.Command, Optional: e.Optional})
		}
		doc.Groups = append(doc.Groups, cg)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		// A struct of strings and bools cannot fail to marshal.
		panic(err)
	}
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}
