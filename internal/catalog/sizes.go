package catalog

// SizeLabel maps a size code to its customer-facing label. Used when
// rendering order confirmations; unknown codes fall back to the code itself.
func SizeLabel(code string) string {
	if label, ok := sizeLabels[code]; ok {
		return label
	}
	return code
}

var sizeLabels = map[string]string{
	"XS":       "Youth XS",
	"YS":       "Youth Small",
	"YM":       "Youth Medium",
	"YL":       "Youth Large",
	"YXL":      "Youth XL",
	"AS":       "Adult Small",
	"AM":       "Adult Medium",
	"AL":       "Adult Large",
	"AXL":      "Adult XL",
	"2X":       "Adult 2X",
	"3X":       "Adult 3X",
	"4X":       "Adult 4X",
	"5X":       "Adult 5X",
	"One Size": "One Size",
}
