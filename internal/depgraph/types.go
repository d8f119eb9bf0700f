// Package depgraph derives a file-level dependency graph from digest text:
// one node per fragment, one edge per resolved local import, prop flow
// between components, and directory groups for layout.
package depgraph

// Node is one digest fragment.
type Node struct {
	ID       string `json:"id"`   // Relative file path
	Path     string `json:"path"` // Equal to ID
	FileName string `json:"file_name"`
	Dir      string `json:"dir"`

	Components    []string `json:"components,omitempty"`
	Contexts      []string `json:"contexts,omitempty"`
	Functions     []string `json:"functions,omitempty"`
	Hooks         []string `json:"hooks,omitempty"`
	Constants     []string `json:"constants,omitempty"`      // Names, when the digest lists them
	ConstantCount int      `json:"constant_count,omitempty"` // Count from "const: N" or the names above

	// PropsReceived is the sorted union of props destructured by the
	// file's components.
	PropsReceived []string `json:"props_received,omitempty"`
	// PropsPassed maps a target node ID to the sorted union of props this
	// file passes to components declared there.
	PropsPassed map[string][]string `json:"props_passed,omitempty"`

	// Raw is the fragment content the node was built from.
	Raw string `json:"raw,omitempty"`
}

// Edge is a directed import from one file to another.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Group buckets nodes by containing directory. Label is empty for the
// nominal source root, which is drawn ungrouped.
type Group struct {
	Dir     string   `json:"dir"`
	Label   string   `json:"label"`
	NodeIDs []string `json:"node_ids"`
}

// DrillChain is a prop handed down through components that only pass it on.
type DrillChain struct {
	Prop string   `json:"prop"`
	Path []string `json:"path"` // Node IDs from the originating file to the last receiver
}

// GraphMetadata summarizes a graph.
type GraphMetadata struct {
	NodeCount  int `json:"node_count"`
	EdgeCount  int `json:"edge_count"`
	GroupCount int `json:"group_count"`
}
