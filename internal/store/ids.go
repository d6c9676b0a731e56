package store

// IDChunk is the listIdChunks payload.
type IDChunk struct {
	IDs         []uint64 `json:"ids"`
	Chunk       int      `json:"chunk"`
	TotalChunks int      `json:"totalChunks"`
	Total       int      `json:"total"`
}

// IDChunk returns one fixed-size chunk of the full unfiltered id order: the global overlay
// (deduplicated, orphans dropped) followed by the remaining catalog ids in baseline order, with
// newer anchor moves applied under the layered strategy. size <= 0 selects DefaultIDChunkSize and
// sizes above MaxIDChunkSize are capped. A chunk out of range yields no ids.
func (s *Store) IDChunk(chunk, size int) IDChunk {
	if size <= 0 {
		size = DefaultIDChunkSize
	}
	if size > MaxIDChunkSize {
		size = MaxIDChunkSize
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.resolveLocked("", s.cat.All())
	total := len(ids)
	out := IDChunk{
		IDs:         []uint64{},
		Chunk:       chunk,
		TotalChunks: (total + size - 1) / size,
		Total:       total,
	}
	if chunk < 0 || chunk >= out.TotalChunks {
		return out
	}
	lo, hi := window(chunk*size, size, total)
	out.IDs = append(make([]uint64, 0, hi-lo), ids[lo:hi]...)
	return out
}
