// 批量导入知识文档脚本
//
// 扫描目录中的 .md/.txt 文件写入知识库，并立即切片入库。
// 文件头部可以用 YAML front matter 指定 title、topic、source_url。
//
// 用法: go run scripts/ingest_docs.go -dir ./notes -topic ohms-law

package main

import (
	"cofq_backend/internal/config"
	"cofq_backend/internal/llm"
	"cofq_backend/internal/repository"
	"cofq_backend/internal/service"
	"cofq_backend/internal/util"
	"cofq_backend/pkg/database"
	"cofq_backend/pkg/logger"
	"context"
	"flag"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
)

func main() {
	configDir := flag.String("config", "configs", "配置文件目录")
	dir := flag.String("dir", "", "文档目录")
	topic := flag.String("topic", "", "默认知识领域 slug，front matter 中的 topic 优先")
	flag.Parse()

	if *dir == "" {
		log.Fatal("-dir 不能为空")
	}

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("无法读取配置: %v", err)
	}
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	ctx := context.Background()
	embedder, err := llm.NewEmbedder(ctx, cfg.Embedding, cfg.LLM.Timeout)
	if err != nil {
		log.Fatalf("初始化向量模型失败: %v", err)
	}

	topics := service.NewTopicService(repository.NewTopicRepository(db))
	knowledge := service.NewKnowledgeService(repository.NewKnowledgeRepository(db), topics, embedder, nil, cfg.RAG)

	created := 0
	err = filepath.WalkDir(*dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !util.IsDocumentFile(path) {
			return err
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		fm, body, err := util.ParseFrontMatter(data)
		if err != nil {
			log.Printf("跳过 %s: %v", path, err)
			return nil
		}

		req := service.CreateDocumentRequest{
			Topic:     firstNonEmpty(fm.Topic, *topic),
			Title:     firstNonEmpty(fm.Title, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))),
			SourceURL: fm.SourceURL,
			Content:   string(body),
		}
		if _, err := knowledge.CreateDocument(req); err != nil {
			log.Printf("跳过 %s: %v", path, err)
			return nil
		}
		created++
		return nil
	})
	if err != nil {
		log.Fatalf("扫描目录失败: %v", err)
	}

	log.Printf("已导入 %d 篇文档，开始切片...", created)
	for {
		n, err := knowledge.ProcessPending(ctx)
		if err != nil {
			log.Fatalf("入库失败: %v", err)
		}
		if n == 0 {
			break
		}
	}
	log.Println("完成！")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
