package pscore

import (
	"strconv"
	"strings"
)

// PrintCell renders a cell per spec §4.9: exactly one textual form
// per tag, round-trippable for every data tag, and a non-round-
// trippable `<...>` form for functions, streams, hashmaps, frames and
// exceptions.
func PrintCell(h *Heap, p CellPtr) string {
	switch h.cell(p).Tag {
	case TagNil:
		return "()"
	case TagTrue:
		return "T"
	case TagCons:
		return printList(h, p)
	case TagString:
		return "\"" + escapeString(h.ChainToString(p)) + "\""
	case TagSymbol:
		return h.ChainToString(p)
	case TagKeyword:
		return ":" + h.ChainToString(p)
	case TagInteger:
		return h.IntegerToString(p)
	case TagRatio:
		dividend, divisor := h.RatioParts(p)
		return h.IntegerToString(dividend) + "/" + h.IntegerToString(divisor)
	case TagReal:
		return strconv.FormatFloat(h.RealValue(p), 'g', -1, 64)
	case TagLambda:
		return "<lambda " + PrintCell(h, h.LambdaArgs(p)) + ">"
	case TagNLambda:
		return "<nlambda " + PrintCell(h, h.LambdaArgs(p)) + ">"
	case TagFunction:
		return "<function " + h.FuncName(p) + ">"
	case TagSpecial:
		return "<special " + h.FuncName(p) + ">"
	case TagReadStream:
		return "<input-stream>"
	case TagWriteStream:
		return "<output-stream>"
	case TagException:
		return "<exception " + string(h.ExceptionKind(p)) + ": " + h.ChainToString(h.ExceptionMessage(p)) + ">"
	case TagVector:
		if h.IsHashMap(p) {
			return "<hashmap>"
		}
		return "<frame>"
	default:
		return "<?>"
	}
}

func printList(h *Heap, p CellPtr) string {
	var sb strings.Builder
	sb.WriteByte('(')
	cursor := p
	first := true
	for h.IsCons(cursor) {
		if !first {
			sb.WriteByte(' ')
		}
		first = false
		pl := h.cell(cursor).Payload.(consPayload)
		sb.WriteString(PrintCell(h, pl.car))
		cursor = pl.cdr
	}
	if !h.IsNil(cursor) {
		sb.WriteString(" . ")
		sb.WriteString(PrintCell(h, cursor))
	}
	sb.WriteByte(')')
	return sb.String()
}

func escapeString(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString("\\\"")
		case '\\':
			sb.WriteString("\\\\")
		case '\n':
			sb.WriteString("\\n")
		case '\t':
			sb.WriteString("\\t")
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
