package evaluator

import (
	"fmt"
	"strings"
	"time"

	"github.com/OrlandoBitencourt/pennant/internal/domain"
)

const maxListItemsInLog = 10

// logBuilder collects the human-readable evaluation trace. All methods are
// no-ops on a nil builder.
type logBuilder struct {
	sb     strings.Builder
	indent int
}

func (b *logBuilder) newLine(format string, args ...any) *logBuilder {
	if b == nil {
		return nil
	}
	b.sb.WriteByte('\n')
	b.sb.WriteString(strings.Repeat("  ", b.indent))
	fmt.Fprintf(&b.sb, format, args...)
	return b
}

func (b *logBuilder) append(format string, args ...any) *logBuilder {
	if b == nil {
		return nil
	}
	fmt.Fprintf(&b.sb, format, args...)
	return b
}

func (b *logBuilder) in() {
	if b != nil {
		b.indent++
	}
}

func (b *logBuilder) out() {
	if b != nil && b.indent > 0 {
		b.indent--
	}
}

func (b *logBuilder) String() string {
	if b == nil {
		return ""
	}
	return b.sb.String()
}

func (b *logBuilder) appendUserCondition(c *domain.UserCondition) *logBuilder {
	if b == nil {
		return nil
	}
	b.append("User.%s %s %s", c.Attribute, c.Comparator, formatComparisonValue(c))
	return b
}

func formatComparisonValue(c *domain.UserCondition) string {
	switch {
	case c.ListValue != nil:
		if c.Comparator.IsSensitive() {
			return fmt.Sprintf("[<%d hashed values>]", len(c.ListValue))
		}
		items := c.ListValue
		suffix := ""
		if len(items) > maxListItemsInLog {
			suffix = fmt.Sprintf(", ... <%d more values>", len(items)-maxListItemsInLog)
			items = items[:maxListItemsInLog]
		}
		quoted := make([]string, len(items))
		for i, item := range items {
			quoted[i] = "'" + item + "'"
		}
		return "[" + strings.Join(quoted, ", ") + suffix + "]"
	case c.StringValue != nil:
		if c.Comparator.IsSensitive() {
			return "'<hashed value>'"
		}
		return "'" + *c.StringValue + "'"
	case c.DoubleValue != nil:
		if c.Comparator == domain.DateBefore || c.Comparator == domain.DateAfter {
			t := time.UnixMilli(int64(*c.DoubleValue * 1000)).UTC()
			return fmt.Sprintf("'%s' (%s UTC)", formatNumber(*c.DoubleValue), t.Format("2006-01-02T15:04:05.000"))
		}
		return fmt.Sprintf("'%s'", formatNumber(*c.DoubleValue))
	default:
		return "<invalid value>"
	}
}
