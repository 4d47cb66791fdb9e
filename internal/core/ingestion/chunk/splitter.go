package chunk

import (
	"strings"
	"unicode/utf8"
)

// TokenCounter はテキストのトークン数を数える
type TokenCounter interface {
	CountTokens(text string) int
}

// Split はテキストを空白区切りの単語に分割し、順序を保ったままブロックへ詰める
// 単語をスペース連結した長さ（文字数）が targetSize 以上になった時点でブロックを閉じる。
// 単語はブロックをまたいで分割されない。1単語が targetSize を超える場合はその単語だけで1ブロックになる。
// 空文字列や空白のみの入力は空のスライスを返す。
func Split(text string, targetSize int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{}
	}
	if targetSize < 1 {
		targetSize = 1
	}

	blocks := make([]string, 0, len(text)/targetSize+1)
	var current strings.Builder
	currentLen := 0

	for _, word := range words {
		if currentLen > 0 {
			current.WriteByte(' ')
			currentLen++
		}
		current.WriteString(word)
		currentLen += utf8.RuneCountInString(word)

		if currentLen >= targetSize {
			blocks = append(blocks, current.String())
			current.Reset()
			currentLen = 0
		}
	}

	if currentLen > 0 {
		blocks = append(blocks, current.String())
	}

	return blocks
}

// Normalize は空白を正規化した単語列（単一スペース区切り）を返す
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Length は Split が用いるのと同じ単位（文字数）でテキスト長を返す
func Length(text string) int {
	return utf8.RuneCountInString(text)
}
