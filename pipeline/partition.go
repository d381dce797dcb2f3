package pipeline

// Partition splits an ordered frame list into contiguous chunks of at
// most chunkSize entries. The chunks cover the list exactly once; the
// final chunk may be shorter.
func Partition(paths []string, chunkSize int) [][]string {
	if chunkSize < 1 {
		chunkSize = 1
	}
	chunks := make([][]string, 0, (len(paths)+chunkSize-1)/chunkSize)
	for start := 0; start < len(paths); start += chunkSize {
		end := start + chunkSize
		if end > len(paths) {
			end = len(paths)
		}
		chunks = append(chunks, paths[start:end])
	}
	return chunks
}
