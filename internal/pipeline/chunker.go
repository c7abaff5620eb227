// Package pipeline 定义了文档摄取的核心流程。
package pipeline

// chunkBoundaries 是切分点的候选字符，按优先级排列：
// 句号优先，其次换行，最后空格。
var chunkBoundaries = []rune{'.', '\n', ' '}

// Chunk 将长文本切分为带重叠的有序分块。
// 文本长度（按 rune 计）不超过 chunkSize 时整体作为单块返回。
// 窗口每步前进 chunkSize-chunkOverlap；在非末尾边界处，从窗口末端向回
// 查找最近的边界字符并在其后切分，避免把词句拦腰截断。
// chunkOverlap >= chunkSize 会导致窗口不前进，此时退化为无重叠的简单切分。
func Chunk(text string, chunkSize, chunkOverlap int) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if len(runes) <= chunkSize {
		return []string{text}
	}
	if chunkOverlap >= chunkSize || chunkOverlap < 0 {
		return simpleSplit(runes, chunkSize)
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + chunkSize
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}

		// 在窗口内向回查找切分点。按字符优先级逐类尝试，
		// 每类取离窗口末端最近的一个。
		cut := end
		for _, boundary := range chunkBoundaries {
			if pos := lastIndexRune(runes, boundary, start+1, end); pos >= 0 {
				cut = pos + 1 // 边界字符归入前一块
				break
			}
		}
		chunks = append(chunks, string(runes[start:cut]))

		next := cut - chunkOverlap
		if next <= start {
			// 切分点太靠前时放弃重叠，保证窗口前进
			next = cut
		}
		start = next
	}
	return chunks
}

// lastIndexRune 在 runes[from:to) 内查找 target 最后一次出现的位置，找不到返回 -1。
func lastIndexRune(runes []rune, target rune, from, to int) int {
	for i := to - 1; i >= from; i-- {
		if runes[i] == target {
			return i
		}
	}
	return -1
}

func simpleSplit(runes []rune, chunkSize int) []string {
	var chunks []string
	for i := 0; i < len(runes); i += chunkSize {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}
