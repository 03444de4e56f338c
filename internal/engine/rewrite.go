package engine

import "strings"

// Placeholder is the positional marker substituted for each named parameter.
const Placeholder = '?'

// scanState is the state of the rewriter's single forward scan.
type scanState int

const (
	stateNormal scanState = iota
	stateQuoted
	stateLineComment
	stateBlockComment
)

// Rewrite replaces every :name reference outside of quoted literals and
// comments with a positional placeholder and returns the names in the order
// they were encountered. A name referenced twice is returned twice.
//
// Every other byte of sql is copied unchanged; the scan works on bytes since
// all syntax it reacts to is ASCII and never occurs inside a UTF-8 sequence.
func Rewrite(sql string) (string, []string) {
	var (
		sb    strings.Builder
		names []string
		state = stateNormal
		delim byte
	)
	sb.Grow(len(sql))

	for i := 0; i < len(sql); i++ {
		ch := sql[i]
		switch state {
		case stateNormal:
			switch {
			case ch == ':' && i+1 < len(sql) && isIdentStart(sql[i+1]):
				j := i + 2
				for j < len(sql) && isIdentChar(sql[j]) {
					j++
				}
				names = append(names, sql[i+1:j])
				sb.WriteByte(Placeholder)
				i = j - 1
			case ch == '\'' || ch == '"' || ch == '`':
				state, delim = stateQuoted, ch
				sb.WriteByte(ch)
			case ch == '#':
				state = stateLineComment
				sb.WriteByte(ch)
			case ch == '-' && i+1 < len(sql) && sql[i+1] == '-':
				state = stateLineComment
				sb.WriteString("--")
				i++
			case ch == '/' && i+1 < len(sql) && sql[i+1] == '*':
				state = stateBlockComment
				sb.WriteString("/*")
				i++
			default:
				sb.WriteByte(ch)
			}

		case stateQuoted:
			sb.WriteByte(ch)
			switch {
			case ch == '\\' && delim != '`':
				if i+1 < len(sql) {
					i++
					sb.WriteByte(sql[i])
				}
			case ch == delim:
				if i+1 < len(sql) && sql[i+1] == delim {
					i++
					sb.WriteByte(sql[i])
				} else {
					state = stateNormal
				}
			}

		case stateLineComment:
			sb.WriteByte(ch)
			if ch == '\n' {
				state = stateNormal
			}

		case stateBlockComment:
			if ch == '*' && i+1 < len(sql) && sql[i+1] == '/' {
				sb.WriteString("*/")
				i++
				state = stateNormal
			} else {
				sb.WriteByte(ch)
			}
		}
	}

	return sb.String(), names
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentChar(ch byte) bool {
	return isIdentStart(ch) || (ch >= '0' && ch <= '9')
}
