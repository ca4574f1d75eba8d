// Package gramambular implements the phrase-lattice decoder behind the input
// method: a grid of overlapping candidate phrases keyed by phonetic readings,
// and a walker that finds the highest scoring path through it.
//
// # Overview
//
// A reading is one phonetic syllable. For a buffer of N readings the grid
// holds, for every end position 1..N, the nodes that end there. A node of
// span length L ending at E exists only if the language model returns at
// least one unigram for the readings [E-L, E) joined with Separator:
//
//	readings:   ㄋㄧˇ   ㄏㄠˇ
//	            0      1      2
//	nodes:      [你]   [好]
//	            [  你好   ]
//
// The walker picks, among all paths that partition [0, N), the one with the
// greatest accumulated node score:
//
//	path := gramambular.BestPath(rg.Grid(), rg.Width())
//	fmt.Println(path.Text()) // 你好
//
// # Pinning
//
// A node's selected candidate can be pinned by the user. A pinned node scores
// PinnedScore regardless of the unigram score, which forces every best path
// through it until the span is invalidated by an edit.
package gramambular
