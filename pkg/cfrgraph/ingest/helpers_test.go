package ingest

import "fmt"

// stubRandom replays fixed values; each slice cycles when exhausted. Intn
// results are reduced modulo n.
type stubRandom struct {
	ints  []int
	norms []float64
	i, j  int
}

func (s *stubRandom) Intn(n int) int {
	if len(s.ints) == 0 {
		return 0
	}
	v := s.ints[s.i%len(s.ints)]
	s.i++
	return v % n
}

func (s *stubRandom) NormFloat64() float64 {
	if len(s.norms) == 0 {
		return 0
	}
	v := s.norms[s.j%len(s.norms)]
	s.j++
	return v
}

func sequentialIDs(prefix string) IDFunc {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}
