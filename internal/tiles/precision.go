package tiles

// MaxPrecision is used for the most zoomed-in bands and for any zoom past the
// end of the table.
const MaxPrecision = 8

// precisionBands maps a zoom level (index) to a geohash precision. The bands
// must stay exactly as they are so tiles line up with previously drawn ones.
var precisionBands = [...]int{
	0: 1, 1: 1, 2: 1,
	3: 2, 4: 2,
	5: 3, 6: 3,
	7: 4,
	8: 5, 9: 5, 10: 5,
	11: 6, 12: 6,
	13: 7, 14: 7,
	15: 8, 16: 8, 17: 8, 18: 8,
}

// MaxZoom is the highest zoom level with its own table entry.
const MaxZoom = len(precisionBands) - 1

// Precision returns the geohash precision used to tile a viewport at zoom.
func Precision(zoom int) int {
	switch {
	case zoom < 0:
		return precisionBands[0]
	case zoom > MaxZoom:
		return MaxPrecision
	default:
		return precisionBands[zoom]
	}
}
