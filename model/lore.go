package model

// Constellation 传说节点所属的星群
type Constellation string

const (
	ConstellationAbyssCore      Constellation = "ABYSS_CORE"
	ConstellationEchoChamber    Constellation = "ECHO_CHAMBER"
	ConstellationMemoryBank     Constellation = "MEMORY_BANK"
	ConstellationRuinedVoid     Constellation = "RUINED_VOID"
	ConstellationResonanceField Constellation = "RESONANCE_FIELD"
)

// Ref is a lightweight reference to another document.
type Ref struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Slug  string `json:"slug,omitempty"`
}

// LoreNode 传说/世界观节点
type LoreNode struct {
	ID               string        `json:"id"`
	Title            string        `json:"title"`
	Slug             string        `json:"slug,omitempty"`
	Content          []string      `json:"content,omitempty"`
	Constellation    Constellation `json:"constellation,omitempty"`
	Timestamp        string        `json:"timestamp,omitempty"`
	ConnectedRituals []Ref         `json:"connectedRituals,omitempty"`
	ConnectedLore    []Ref         `json:"connectedLore,omitempty"`
}
