package taxonomy

import "strings"

// LandCoverColumnPrefix prefixes the per-subclass percent-cover columns of the
// CEO primary sampling unit table.
const LandCoverColumnPrefix = "Land_Cover_Elements_"

// columnKeyLen is how many leading characters of a CEO label survive in its
// percent-cover column name.
const columnKeyLen = 11

// ceoLegend lists CEO labels with their display colors, in legend order.
var ceoLegend = []struct {
	Label string
	Color string
}{
	{CEOTrees, "#007500"},
	{CEOBushScrub, "#DBED00"},
	{CEOGrass, "#00F100"},
	{CEOCultivated, "#FF00D6"},
	{CEOTreatedPool, "#00F1DE"},
	{CEOLakePond, "#00B7F2"},
	{CEORiverStream, "#1527F6"},
	{CEOIrrigation, "#007570"},
	{CEOShadow, "#000000"},
	{CEOUnknown, "#C8D2D3"},
	{CEOBareGround, "#AA7941"},
	{CEOBuilding, "#FF8080"},
	{CEOImpervious, "#FF0000"},
}

var classColors = map[Class]string{
	Grassland:   "#00F100",
	Shrubland:   "#DBED00",
	BuiltUp:     "#FF0000",
	Barren:      "#AA7941",
	Trees:       "#007500",
	Cropland:    "#FF00D6",
	WaterBodies: "#00B7F2",
	Wetland:     "#0096A0",
	Snow:        "#F0F0F0",
}

// Color returns the display color for a shared class.
func (c Class) Color() string { return classColors[c] }

// CEOColor returns the display color for a CEO label, or "" if unknown.
func CEOColor(label string) string {
	for _, e := range ceoLegend {
		if e.Label == label {
			return e.Color
		}
	}
	return ""
}

// CEOLabels returns the CEO labels in legend order.
func CEOLabels() []string {
	out := make([]string, len(ceoLegend))
	for i, e := range ceoLegend {
		out[i] = e.Label
	}
	return out
}

// CEOLabelFromColumn resolves a Land_Cover_Elements_<subclass> column name to
// its CEO label. Column names carry only a truncated, punctuation-stripped
// prefix of the label.
func CEOLabelFromColumn(column string) (string, bool) {
	if !strings.HasPrefix(column, LandCoverColumnPrefix) {
		return "", false
	}
	key := strings.ReplaceAll(strings.TrimPrefix(column, LandCoverColumnPrefix), "_", " ")
	for _, e := range ceoLegend {
		if columnKey(e.Label) == key {
			return e.Label, true
		}
	}
	return "", false
}

func columnKey(label string) string {
	if len(label) > columnKeyLen {
		label = label[:columnKeyLen]
	}
	return strings.NewReplacer(">", " ", "_", " ", "/", " ").Replace(label)
}
