package grid

// GetGridCoords maps a linear index to its column and row in a grid cols wide.
func GetGridCoords(index, cols int) (x, y int) {
	return index % cols, index / cols
}

// GetIndex is the inverse of GetGridCoords.
func GetIndex(x, y, cols int) int {
	return y*cols + x
}
