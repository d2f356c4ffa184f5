// Package vector 向量的编码与相似度计算，知识片段的 embedding 以字节形式存库
package vector

import (
	"encoding/binary"
	"errors"
	"math"
	"sort"
)

var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Encode 小端序 float32 序列
func Encode(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

func Decode(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, errors.New("vector bytes length is not a multiple of 4")
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, nil
}

// Cosine 任一向量为零向量时返回 0
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrDimensionMismatch
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}

// Scored 带分数的候选项
type Scored struct {
	ID    uint
	Score float64
}

// TopK 按分数降序取前 k 个，分数相同按 ID 升序，低于 minScore 的丢弃
func TopK(items []Scored, k int, minScore float64) []Scored {
	kept := make([]Scored, 0, len(items))
	for _, it := range items {
		if it.Score >= minScore {
			kept = append(kept, it)
		}
	}
	sort.Slice(kept, func(i, j int) bool {
		if kept[i].Score != kept[j].Score {
			return kept[i].Score > kept[j].Score
		}
		return kept[i].ID < kept[j].ID
	})
	if k >= 0 && len(kept) > k {
		kept = kept[:k]
	}
	return kept
}
