package evaluator

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/blang/semver/v4"

	"github.com/OrlandoBitencourt/pennant/internal/domain"
	"github.com/OrlandoBitencourt/pennant/internal/logging"
)

// invalidAttributeError reports a user attribute that cannot be read as the
// type the comparator needs.
type invalidAttributeError struct {
	reason string
}

func (e *invalidAttributeError) Error() string { return e.reason }

func asInvalidAttribute(err error, target **invalidAttributeError) bool {
	return errors.As(err, target)
}

func invalidAttribute(attr, want string) error {
	return &invalidAttributeError{reason: fmt.Sprintf("'%s' is not a valid %s", attr, want)}
}

// hashValue computes the hex SHA-256 used by sensitive comparators.
func hashValue(value []byte, configSalt, contextSalt string) string {
	h := sha256.New()
	h.Write(value)
	h.Write([]byte(configSalt))
	h.Write([]byte(contextSalt))
	return hex.EncodeToString(h.Sum(nil))
}

// compare applies the condition's comparator to the user attribute value.
func (e *Evaluator) compare(ctx *evalContext, c *domain.UserCondition, value any, contextSalt string) (bool, error) {
	salt := ctx.config.Salt()

	switch c.Comparator {
	case domain.IsOneOf, domain.IsNotOneOf:
		list, err := requireList(ctx, c)
		if err != nil {
			return false, err
		}
		found := slices.Contains(list, attributeString(value))
		return found != (c.Comparator == domain.IsNotOneOf), nil

	case domain.SensitiveIsOneOf, domain.SensitiveIsNotOneOf:
		list, err := requireList(ctx, c)
		if err != nil {
			return false, err
		}
		hashed := hashValue([]byte(attributeString(value)), salt, contextSalt)
		found := slices.Contains(list, hashed)
		return found != (c.Comparator == domain.SensitiveIsNotOneOf), nil

	case domain.ContainsAnyOf, domain.NotContainsAnyOf:
		list, err := requireList(ctx, c)
		if err != nil {
			return false, err
		}
		text := attributeString(value)
		found := slices.ContainsFunc(list, func(item string) bool { return strings.Contains(text, item) })
		return found != (c.Comparator == domain.NotContainsAnyOf), nil

	case domain.TextEquals, domain.TextNotEquals:
		s, err := requireString(ctx, c)
		if err != nil {
			return false, err
		}
		return (attributeString(value) == s) != (c.Comparator == domain.TextNotEquals), nil

	case domain.SensitiveEquals, domain.SensitiveNotEquals:
		s, err := requireString(ctx, c)
		if err != nil {
			return false, err
		}
		hashed := hashValue([]byte(attributeString(value)), salt, contextSalt)
		return (hashed == s) != (c.Comparator == domain.SensitiveNotEquals), nil

	case domain.TextStartsWithAnyOf, domain.TextNotStartsWithAnyOf,
		domain.TextEndsWithAnyOf, domain.TextNotEndsWithAnyOf:
		list, err := requireList(ctx, c)
		if err != nil {
			return false, err
		}
		text := attributeString(value)
		startsWith := c.Comparator == domain.TextStartsWithAnyOf || c.Comparator == domain.TextNotStartsWithAnyOf
		found := slices.ContainsFunc(list, func(item string) bool {
			if startsWith {
				return strings.HasPrefix(text, item)
			}
			return strings.HasSuffix(text, item)
		})
		negate := c.Comparator == domain.TextNotStartsWithAnyOf || c.Comparator == domain.TextNotEndsWithAnyOf
		return found != negate, nil

	case domain.SensitiveStartsWithAnyOf, domain.SensitiveNotStartsWithAnyOf,
		domain.SensitiveEndsWithAnyOf, domain.SensitiveNotEndsWithAnyOf:
		list, err := requireList(ctx, c)
		if err != nil {
			return false, err
		}
		startsWith := c.Comparator == domain.SensitiveStartsWithAnyOf || c.Comparator == domain.SensitiveNotStartsWithAnyOf
		found, invalid, ok := hashedAffixMatch([]byte(attributeString(value)), list, startsWith, salt, contextSalt)
		if !ok {
			e.invalidComparisonValue(ctx, c, invalid)
			return false, nil
		}
		negate := c.Comparator == domain.SensitiveNotStartsWithAnyOf || c.Comparator == domain.SensitiveNotEndsWithAnyOf
		return found != negate, nil

	case domain.ArrayContainsAnyOf, domain.ArrayNotContainsAnyOf,
		domain.SensitiveArrayContainsAnyOf, domain.SensitiveArrayNotContainsAny:
		list, err := requireList(ctx, c)
		if err != nil {
			return false, err
		}
		items, ok := arrayValue(value)
		if !ok {
			return false, invalidAttribute(attributeString(value), "string array")
		}
		sensitive := c.Comparator == domain.SensitiveArrayContainsAnyOf || c.Comparator == domain.SensitiveArrayNotContainsAny
		found := slices.ContainsFunc(items, func(item string) bool {
			if sensitive {
				item = hashValue([]byte(item), salt, contextSalt)
			}
			return slices.Contains(list, item)
		})
		negate := c.Comparator == domain.ArrayNotContainsAnyOf || c.Comparator == domain.SensitiveArrayNotContainsAny
		return found != negate, nil

	case domain.SemVerIsOneOf, domain.SemVerIsNotOneOf:
		list, err := requireList(ctx, c)
		if err != nil {
			return false, err
		}
		version, ok := semverValue(value)
		if !ok {
			return false, invalidAttribute(attributeString(value), "semantic version")
		}
		found := false
		for _, item := range list {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			candidate, err := semver.Parse(item)
			if err != nil {
				// an invalid comparison value makes the whole condition false
				e.invalidComparisonValue(ctx, c, item)
				return false, nil
			}
			if version.EQ(candidate) {
				found = true
			}
		}
		return found != (c.Comparator == domain.SemVerIsNotOneOf), nil

	case domain.SemVerLess, domain.SemVerLessOrEquals, domain.SemVerGreater, domain.SemVerGreaterOrEquals:
		s, err := requireString(ctx, c)
		if err != nil {
			return false, err
		}
		version, ok := semverValue(value)
		if !ok {
			return false, invalidAttribute(attributeString(value), "semantic version")
		}
		target, err := semver.Parse(strings.TrimSpace(s))
		if err != nil {
			e.invalidComparisonValue(ctx, c, s)
			return false, nil
		}
		return compareOrdered(c.Comparator, version.Compare(target)), nil

	case domain.NumberEquals, domain.NumberNotEquals, domain.NumberLess,
		domain.NumberLessOrEquals, domain.NumberGreater, domain.NumberGreaterOrEquals:
		d, err := requireDouble(ctx, c)
		if err != nil {
			return false, err
		}
		n, ok := numberValue(value)
		if !ok {
			return false, invalidAttribute(attributeString(value), "decimal number")
		}
		switch c.Comparator {
		case domain.NumberEquals:
			return n == d, nil
		case domain.NumberNotEquals:
			return n != d, nil
		case domain.NumberLess:
			return n < d, nil
		case domain.NumberLessOrEquals:
			return n <= d, nil
		case domain.NumberGreater:
			return n > d, nil
		default:
			return n >= d, nil
		}

	case domain.DateBefore, domain.DateAfter:
		d, err := requireDouble(ctx, c)
		if err != nil {
			return false, err
		}
		n, ok := dateValue(value)
		if !ok {
			return false, invalidAttribute(attributeString(value), "Unix timestamp (number of seconds elapsed since Unix epoch)")
		}
		if c.Comparator == domain.DateBefore {
			return n < d, nil
		}
		return n > d, nil

	default:
		return false, invalidModel(ctx.key, fmt.Sprintf("comparison operator %d is invalid", int(c.Comparator)), nil)
	}
}

// compareOrdered maps a three-way comparison result through a relational
// semver comparator.
func compareOrdered(op domain.Comparator, cmp int) bool {
	switch op {
	case domain.SemVerLess:
		return cmp < 0
	case domain.SemVerLessOrEquals:
		return cmp <= 0
	case domain.SemVerGreater:
		return cmp > 0
	default:
		return cmp >= 0
	}
}

// hashedAffixMatch checks "<byteLength>_<hash>" items against the leading or
// trailing bytes of value. A malformed item stops the scan and is returned
// with ok false.
func hashedAffixMatch(value []byte, list []string, startsWith bool, salt, contextSalt string) (found bool, invalid string, ok bool) {
	for _, item := range list {
		lengthStr, hash, cut := strings.Cut(item, "_")
		if !cut {
			return false, item, false
		}
		n, err := strconv.Atoi(strings.TrimSpace(lengthStr))
		if err != nil || n < 0 {
			return false, item, false
		}
		if len(value) < n {
			continue
		}
		part := value[:n]
		if !startsWith {
			part = value[len(value)-n:]
		}
		if hashValue(part, salt, contextSalt) == hash {
			return true, "", true
		}
	}
	return false, "", true
}

// invalidComparisonValue logs a comparison value that cannot be parsed. The
// condition then counts as a non-match.
func (e *Evaluator) invalidComparisonValue(ctx *evalContext, c *domain.UserCondition, item string) {
	e.warnOnce(ctx, fmt.Sprintf("comparison:%s:%d:%s", c.Attribute, int(c.Comparator), item),
		logging.EventComparisonValueInvalid,
		fmt.Sprintf("cannot evaluate condition (User.%s %s ...) for setting '%s' ('%s' is not a valid comparison value)",
			c.Attribute, c.Comparator, ctx.key, item))
}

func requireList(ctx *evalContext, c *domain.UserCondition) ([]string, error) {
	if c.ListValue == nil {
		return nil, invalidModel(ctx.key, "comparison value is missing or invalid", nil)
	}
	return c.ListValue, nil
}

func requireString(ctx *evalContext, c *domain.UserCondition) (string, error) {
	if c.StringValue == nil {
		return "", invalidModel(ctx.key, "comparison value is missing or invalid", nil)
	}
	return *c.StringValue, nil
}

func requireDouble(ctx *evalContext, c *domain.UserCondition) (float64, error) {
	if c.DoubleValue == nil {
		return 0, invalidModel(ctx.key, "comparison value is missing or invalid", nil)
	}
	return *c.DoubleValue, nil
}
