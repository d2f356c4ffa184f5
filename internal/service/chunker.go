package service

import (
	"strings"
	"unicode"
)

// ChunkText 按段落装箱，每块不超过 size 个字符，相邻块保留 overlap 个字符重叠；
// 超长段落按固定窗口切分
func ChunkText(text string, size, overlap int) []string {
	if size <= 0 {
		return nil
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	var chunks []string
	var cur []rune

	flush := func() {
		s := strings.TrimSpace(string(cur))
		if s != "" {
			chunks = append(chunks, s)
		}
		cur = nil
	}

	for _, para := range splitParagraphs(text) {
		pr := []rune(para)

		if len(pr) > size {
			flush()
			chunks = append(chunks, runeWindows(pr, size, overlap)...)
			continue
		}

		sep := 0
		if len(cur) > 0 {
			sep = 2
		}
		if len(cur)+sep+len(pr) > size {
			prev := cur
			flush()

			keep := overlap
			if room := size - len(pr) - 1; keep > room {
				keep = room
			}
			if keep > 0 && len(prev) > 0 {
				if keep > len(prev) {
					keep = len(prev)
				}
				cur = append(cur, []rune(strings.TrimLeftFunc(string(prev[len(prev)-keep:]), unicode.IsSpace))...)
				if len(cur) > 0 {
					cur = append(cur, ' ')
				}
			}
		} else if sep > 0 {
			cur = append(cur, '\n', '\n')
		}
		cur = append(cur, pr...)
	}
	flush()

	return chunks
}

func splitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var paras []string
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(p)
		if p != "" {
			paras = append(paras, p)
		}
	}
	return paras
}

func runeWindows(r []rune, size, overlap int) []string {
	step := size - overlap
	var out []string
	for start := 0; start < len(r); start += step {
		end := start + size
		if end > len(r) {
			end = len(r)
		}
		if s := strings.TrimSpace(string(r[start:end])); s != "" {
			out = append(out, s)
		}
		if end == len(r) {
			break
		}
	}
	return out
}

// excerpt 截取前 n 个字符
func excerpt(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return strings.TrimSpace(string(r[:n])) + "…"
}
