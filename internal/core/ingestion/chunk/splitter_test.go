package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		targetSize int
		want       []string
	}{
		{
			name:       "目標サイズで2ブロックに分割",
			text:       "alfa beta gama delta",
			targetSize: 8,
			want:       []string{"alfa beta", "gama delta"},
		},
		{
			name:       "空文字列",
			text:       "",
			targetSize: 100,
			want:       []string{},
		},
		{
			name:       "空白のみ",
			text:       " \n\t  ",
			targetSize: 100,
			want:       []string{},
		},
		{
			name:       "目標サイズを超える単語は単独ブロック",
			text:       "a supercalifragilistic b",
			targetSize: 5,
			want:       []string{"a supercalifragilistic", "b"},
		},
		{
			name:       "長い単語が先頭",
			text:       "supercalifragilistic a b",
			targetSize: 5,
			want:       []string{"supercalifragilistic", "a b"},
		},
		{
			name:       "空白幅は正規化される",
			text:       "  um\t\tdois\n\ntres  ",
			targetSize: 100,
			want:       []string{"um dois tres"},
		},
		{
			name:       "マルチバイト文字は文字数で数える",
			text:       "ação éé",
			targetSize: 7,
			want:       []string{"ação éé"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Split(tt.text, tt.targetSize))
		})
	}
}

func TestSplit_SingleBlockWhenTargetCoversText(t *testing.T) {
	text := "o regulamento   da escola\nprevê  horários"
	normalized := Normalize(text)

	blocks := Split(text, Length(normalized))
	require.Len(t, blocks, 1)
	assert.Equal(t, normalized, blocks[0])

	blocks = Split(text, Length(normalized)+50)
	require.Len(t, blocks, 1)
	assert.Equal(t, normalized, blocks[0])
}

// TestSplit_Lossless は結合結果が正規化済みの単語列と一致し、単語が分割されないことを確認する
func TestSplit_Lossless(t *testing.T) {
	texts := []string{
		strings.Repeat("lorem ipsum dolor sit amet, consectetur adipiscing elit. ", 40),
		"uma\tfrase\n\ncom   espaços irregulares e acentuação",
		"x",
		strings.Repeat("palavra ", 3) + strings.Repeat("z", 50) + " fim",
	}
	sizes := []int{1, 3, 8, 40, 400, 800, 1500}

	for _, text := range texts {
		originalWords := strings.Fields(text)
		for _, size := range sizes {
			blocks := Split(text, size)

			assert.Equal(t, Normalize(text), strings.Join(blocks, " "), "size=%d", size)

			var rejoinedWords []string
			for i, block := range blocks {
				require.NotEmpty(t, strings.TrimSpace(block), "size=%d block=%d", size, i)
				rejoinedWords = append(rejoinedWords, strings.Fields(block)...)

				// 最終ブロック以外は目標サイズに到達している
				if i < len(blocks)-1 {
					assert.GreaterOrEqual(t, Length(block), size)
				}
			}
			assert.Equal(t, originalWords, rejoinedWords, "size=%d", size)
		}
	}
}

func TestSplit_Deterministic(t *testing.T) {
	text := strings.Repeat("determinismo ", 200)
	assert.Equal(t, Split(text, 400), Split(text, 400))
}
