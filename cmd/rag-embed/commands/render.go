package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/jinford/rag-embed/internal/core/embedding"
	"github.com/jinford/rag-embed/internal/core/ingestion"
)

const (
	previewLength = 60
	timeLayout    = "2006-01-02 15:04:05"
)

// preview は改行を空白に置き換え、limit 文字を超える部分を省略する
func preview(content string, limit int) string {
	flat := strings.Join(strings.Fields(content), " ")
	runes := []rune(flat)
	if len(runes) <= limit {
		return flat
	}
	return string(runes[:limit]) + "..."
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format(timeLayout)
}

func renderRecordsTable(w io.Writer, records []embedding.RecordSummary) {
	table := tablewriter.NewWriter(w)
	table.Header("ID", "カテゴリ", "内容", "作成日時")

	for _, r := range records {
		createdAt := r.CreatedAt
		table.Append(
			r.ID.String(),
			r.Category,
			preview(r.Content, previewLength),
			formatTime(&createdAt),
		)
	}

	table.Render()
}

func renderCategoriesTable(w io.Writer, categories []string, counts map[string]int64) {
	table := tablewriter.NewWriter(w)
	table.Header("カテゴリ", "レコード数")

	for _, c := range categories {
		table.Append(c, fmt.Sprintf("%d", counts[c]))
	}

	table.Render()
}

func renderStatsTable(w io.Writer, stats embedding.Stats) {
	table := tablewriter.NewWriter(w)
	table.Header("メトリクス", "値")

	table.Append("総レコード数", fmt.Sprintf("%d", stats.Total))
	table.Append("カテゴリ数", fmt.Sprintf("%d", stats.DistinctCategoryCount))
	table.Append("最古の登録日時", formatTime(stats.EarliestCreatedAt))
	table.Append("最新の登録日時", formatTime(stats.LatestCreatedAt))

	table.Render()
}

func renderIngestResult(w io.Writer, result *ingestion.Result) {
	fmt.Fprintf(w, "%d 件のレコードを登録しました (category=%s, batch=%s, tokens=%d, duration=%s)\n",
		result.Inserted, result.Category, result.BatchID, result.Tokens, result.Duration.Round(time.Millisecond))
}

func renderBatchResult(w io.Writer, result *ingestion.BatchResult) {
	fmt.Fprintf(w, "文書 %d 件: 成功 %d / スキップ %d / 失敗 %d, 登録レコード %d 件 (tokens=%d, duration=%s)\n",
		result.Documents, result.Succeeded, result.Skipped, result.Failed,
		result.Inserted, result.Tokens, result.Duration.Round(time.Millisecond))

	if len(result.Failures) == 0 {
		return
	}

	table := tablewriter.NewWriter(w)
	table.Header("文書", "エラー")
	for _, f := range result.Failures {
		table.Append(f.Source, f.Err.Error())
	}
	table.Render()
}

// progressPrinter は "processing block i/n" を1行で上書き表示する ProgressFunc を返す
func progressPrinter(w io.Writer, prefix string) ingestion.ProgressFunc {
	return func(done, total int) {
		fmt.Fprintf(w, "\r%sprocessing block %d/%d", prefix, done, total)
		if done == total {
			fmt.Fprintln(w)
		}
	}
}
