// Package shuffle implements the byte transpose applied to fixed-width row
// blocks before compression.
//
// Row-major input stores row i at [i*rowSize, (i+1)*rowSize). The shuffled
// layout stores byte j of every row contiguously, so byte j of row i lands at
// j*rowCount+i. Sorted numeric columns change slowly across rows, which makes
// the high-order byte planes highly repetitive and much easier to deflate.
package shuffle

// Shuffle transposes row-major bytes into byte-plane-major order.
//
// If data is shorter than rowSize*rowCount (or either size is zero) the
// input is returned unchanged.
func Shuffle(data []byte, rowSize, rowCount int) []byte {
	total, ok := span(data, rowSize, rowCount)
	if !ok {
		return data
	}

	out := make([]byte, total)
	for i := 0; i < rowCount; i++ {
		row := data[i*rowSize : (i+1)*rowSize]
		for j, b := range row {
			out[j*rowCount+i] = b
		}
	}
	return out
}

// Unshuffle is the exact inverse of Shuffle.
//
// If data is shorter than rowSize*rowCount (or either size is zero) the
// input is returned unchanged.
func Unshuffle(data []byte, rowSize, rowCount int) []byte {
	total, ok := span(data, rowSize, rowCount)
	if !ok {
		return data
	}

	out := make([]byte, total)
	for j := 0; j < rowSize; j++ {
		plane := data[j*rowCount : (j+1)*rowCount]
		for i, b := range plane {
			out[i*rowSize+j] = b
		}
	}
	return out
}

func span(data []byte, rowSize, rowCount int) (int, bool) {
	if rowSize <= 0 || rowCount <= 0 {
		return 0, false
	}
	total := rowSize * rowCount
	if total/rowCount != rowSize || len(data) < total {
		return 0, false
	}
	return total, true
}
