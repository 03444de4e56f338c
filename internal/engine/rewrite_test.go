package engine

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"

	"github.com/SimonWaldherr/dataapi/internal/testhelper"
)

type rewriteCases struct {
	Cases []struct {
		Name  string   `yaml:"name"`
		SQL   string   `yaml:"sql"`
		Want  string   `yaml:"want"`
		Names []string `yaml:"names"`
	} `yaml:"cases"`
}

func TestRewrite(t *testing.T) {
	t.Parallel()

	var fixtures rewriteCases
	testhelper.LoadYAML(t, filepath.Join("testdata", "rewrite.yml"), &fixtures)

	for _, aTestCase := range fixtures.Cases {
		t.Run(aTestCase.Name, func(t *testing.T) {
			got, names := Rewrite(aTestCase.SQL)
			assert.Equal(t, aTestCase.Want, got)
			if len(aTestCase.Names) == 0 {
				assert.Empty(t, names)
			} else {
				assert.Equal(t, aTestCase.Names, names)
			}
		})
	}
}

func TestRewrite_NoParametersIsIdentity(t *testing.T) {
	t.Parallel()

	faker := gofakeit.New(7)
	for i := 0; i < 200; i++ {
		sql := strings.ReplaceAll(faker.Sentence(faker.IntRange(1, 20)), ":", "")
		got, names := Rewrite(sql)
		assert.Equal(t, sql, got)
		assert.Empty(t, names)
	}
}

func TestRewrite_GeneratedPredicates(t *testing.T) {
	t.Parallel()

	faker := gofakeit.New(11)
	for i := 0; i < 100; i++ {
		var (
			want       []string
			predicates []string
			rewritten  []string
		)
		for j := faker.IntRange(1, 8); j > 0; j-- {
			name := "p_" + faker.LetterN(uint(faker.IntRange(1, 10)))
			want = append(want, name)
			predicates = append(predicates, "col = :"+name)
			rewritten = append(rewritten, "col = ?")
		}

		sql := "SELECT * FROM t WHERE " + strings.Join(predicates, " AND ")
		got, names := Rewrite(sql)
		assert.Equal(t, "SELECT * FROM t WHERE "+strings.Join(rewritten, " AND "), got)
		assert.Equal(t, want, names)
		assert.Equal(t, len(names), strings.Count(got, string(Placeholder)))
	}
}

func BenchmarkRewrite(b *testing.B) {
	sql := "SELECT a, b, ':skip' FROM t /* :c */ WHERE a = :a AND b IN (:b, :b) -- :d\nORDER BY a"
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		Rewrite(sql)
	}
}
