package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/jinford/rag-embed/cmd/rag-embed/commands"
)

func envFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "env",
		Usage: "環境変数ファイルパス",
		Value: ".env",
	}
}

func chunkSizeFlag() cli.Flag {
	return &cli.IntFlag{
		Name:  "chunk-size",
		Usage: "ブロックサイズ（文字数、省略時は INGEST_DEFAULT_CHUNK_SIZE）",
	}
}

func categoryFlag(required bool, usage string) cli.Flag {
	return &cli.StringFlag{
		Name:     "category",
		Usage:    usage,
		Required: required,
	}
}

func yesFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "yes",
		Usage: "確認プロンプトを省略",
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:  "rag-embed",
		Usage: "テキストを分割して Embedding を生成し、pgvector に登録・管理する",
		Commands: []*cli.Command{
			{
				Name:  "ingest",
				Usage: "取り込みコマンド",
				Commands: []*cli.Command{
					{
						Name:  "text",
						Usage: "テキストを取り込む（--text 省略時は標準入力）",
						Flags: []cli.Flag{
							envFlag(),
							categoryFlag(true, "カテゴリ"),
							&cli.StringFlag{
								Name:  "text",
								Usage: "取り込むテキスト",
							},
							chunkSizeFlag(),
						},
						Action: commands.IngestTextAction,
					},
					{
						Name:  "file",
						Usage: "PDF / テキスト / Markdown ファイルを取り込む",
						Flags: []cli.Flag{
							envFlag(),
							categoryFlag(true, "カテゴリ"),
							&cli.StringFlag{
								Name:     "path",
								Usage:    "ファイルパス",
								Required: true,
							},
							chunkSizeFlag(),
						},
						Action: commands.IngestFileAction,
					},
					{
						Name:  "git",
						Usage: "Git リポジトリの文書を取り込む",
						Flags: []cli.Flag{
							envFlag(),
							&cli.StringFlag{
								Name:     "url",
								Usage:    "Git リポジトリ URL またはローカルパス",
								Required: true,
							},
							categoryFlag(false, "カテゴリ（省略時はリポジトリ名）"),
							&cli.StringFlag{
								Name:  "ref",
								Usage: "ブランチ名・タグ名・コミット（省略時は GIT_DEFAULT_BRANCH）",
							},
							&cli.BoolFlag{
								Name:  "all-text",
								Usage: "文書以外のテキストファイルも取り込む",
							},
							chunkSizeFlag(),
						},
						Action: commands.IngestGitAction,
					},
				},
			},
			{
				Name:  "list",
				Usage: "登録済みレコードを新しい順に表示",
				Flags: []cli.Flag{
					envFlag(),
					categoryFlag(false, "カテゴリ（絞り込み）"),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "最大表示件数",
						Value: 20,
					},
				},
				Action: commands.ListAction,
			},
			{
				Name:  "count",
				Usage: "レコード数を表示",
				Flags: []cli.Flag{
					envFlag(),
					categoryFlag(false, "カテゴリ（絞り込み）"),
				},
				Action: commands.CountAction,
			},
			{
				Name:   "categories",
				Usage:  "カテゴリ一覧を表示",
				Flags:  []cli.Flag{envFlag()},
				Action: commands.CategoriesAction,
			},
			{
				Name:   "stats",
				Usage:  "集計情報を表示",
				Flags:  []cli.Flag{envFlag()},
				Action: commands.StatsAction,
			},
			{
				Name:  "delete",
				Usage: "ID を指定してレコードを削除",
				Flags: []cli.Flag{
					envFlag(),
					&cli.StringFlag{
						Name:     "id",
						Usage:    "レコード ID",
						Required: true,
					},
					yesFlag(),
				},
				Action: commands.DeleteAction,
			},
			{
				Name:  "delete-category",
				Usage: "カテゴリ内の全レコードを削除",
				Flags: []cli.Flag{
					envFlag(),
					categoryFlag(true, "カテゴリ"),
					yesFlag(),
				},
				Action: commands.DeleteCategoryAction,
			},
			{
				Name:   "migrate",
				Usage:  "データベーススキーマのマイグレーションを適用",
				Flags:  []cli.Flag{envFlag()},
				Action: commands.MigrateAction,
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
