package util

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// FrontMatter markdown 文件头部的 YAML 元数据
type FrontMatter struct {
	Title     string `yaml:"title"`
	Topic     string `yaml:"topic"`
	SourceURL string `yaml:"source_url"`
}

var frontMatterDelim = []byte("---")

// ParseFrontMatter 拆出以 --- 包围的头部，没有头部时原样返回正文
func ParseFrontMatter(data []byte) (FrontMatter, []byte, error) {
	var fm FrontMatter

	trimmed := bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !bytes.HasPrefix(trimmed, frontMatterDelim) {
		return fm, data, nil
	}
	rest := trimmed[len(frontMatterDelim):]
	nl := bytes.IndexByte(rest, '\n')
	if nl < 0 || len(bytes.TrimSpace(rest[:nl])) != 0 {
		return fm, data, nil
	}
	rest = rest[nl+1:]

	end := bytes.Index(rest, append([]byte("\n"), frontMatterDelim...))
	var header []byte
	switch {
	case bytes.HasPrefix(rest, frontMatterDelim):
		header, rest = nil, rest[len(frontMatterDelim):]
	case end >= 0:
		header, rest = rest[:end], rest[end+1+len(frontMatterDelim):]
	default:
		return fm, nil, fmt.Errorf("front matter is not closed")
	}

	if err := yaml.Unmarshal(header, &fm); err != nil {
		return fm, nil, fmt.Errorf("invalid front matter: %w", err)
	}
	return fm, bytes.TrimLeft(rest, "\r\n"), nil
}
