package domain

import "fmt"

// Comparator identifies the operation of a user condition. Values match the
// numeric ids used in the configuration document.
type Comparator int

const (
	IsOneOf                      Comparator = 0
	IsNotOneOf                   Comparator = 1
	ContainsAnyOf                Comparator = 2
	NotContainsAnyOf             Comparator = 3
	SemVerIsOneOf                Comparator = 4
	SemVerIsNotOneOf             Comparator = 5
	SemVerLess                   Comparator = 6
	SemVerLessOrEquals           Comparator = 7
	SemVerGreater                Comparator = 8
	SemVerGreaterOrEquals        Comparator = 9
	NumberEquals                 Comparator = 10
	NumberNotEquals              Comparator = 11
	NumberLess                   Comparator = 12
	NumberLessOrEquals           Comparator = 13
	NumberGreater                Comparator = 14
	NumberGreaterOrEquals        Comparator = 15
	SensitiveIsOneOf             Comparator = 16
	SensitiveIsNotOneOf          Comparator = 17
	DateBefore                   Comparator = 18
	DateAfter                    Comparator = 19
	SensitiveEquals              Comparator = 20
	SensitiveNotEquals           Comparator = 21
	SensitiveStartsWithAnyOf     Comparator = 22
	SensitiveNotStartsWithAnyOf  Comparator = 23
	SensitiveEndsWithAnyOf       Comparator = 24
	SensitiveNotEndsWithAnyOf    Comparator = 25
	SensitiveArrayContainsAnyOf  Comparator = 26
	SensitiveArrayNotContainsAny Comparator = 27
	TextEquals                   Comparator = 28
	TextNotEquals                Comparator = 29
	TextStartsWithAnyOf          Comparator = 30
	TextNotStartsWithAnyOf       Comparator = 31
	TextEndsWithAnyOf            Comparator = 32
	TextNotEndsWithAnyOf         Comparator = 33
	ArrayContainsAnyOf           Comparator = 34
	ArrayNotContainsAnyOf        Comparator = 35
)

var comparatorNames = map[Comparator]string{
	IsOneOf:                      "IS ONE OF",
	IsNotOneOf:                   "IS NOT ONE OF",
	ContainsAnyOf:                "CONTAINS ANY OF",
	NotContainsAnyOf:             "NOT CONTAINS ANY OF",
	SemVerIsOneOf:                "IS ONE OF",
	SemVerIsNotOneOf:             "IS NOT ONE OF",
	SemVerLess:                   "<",
	SemVerLessOrEquals:           "<=",
	SemVerGreater:                ">",
	SemVerGreaterOrEquals:        ">=",
	NumberEquals:                 "=",
	NumberNotEquals:              "!=",
	NumberLess:                   "<",
	NumberLessOrEquals:           "<=",
	NumberGreater:                ">",
	NumberGreaterOrEquals:        ">=",
	SensitiveIsOneOf:             "IS ONE OF",
	SensitiveIsNotOneOf:          "IS NOT ONE OF",
	DateBefore:                   "BEFORE",
	DateAfter:                    "AFTER",
	SensitiveEquals:              "EQUALS",
	SensitiveNotEquals:           "NOT EQUALS",
	SensitiveStartsWithAnyOf:     "STARTS WITH ANY OF",
	SensitiveNotStartsWithAnyOf:  "NOT STARTS WITH ANY OF",
	SensitiveEndsWithAnyOf:       "ENDS WITH ANY OF",
	SensitiveNotEndsWithAnyOf:    "NOT ENDS WITH ANY OF",
	SensitiveArrayContainsAnyOf:  "ARRAY CONTAINS ANY OF",
	SensitiveArrayNotContainsAny: "ARRAY NOT CONTAINS ANY OF",
	TextEquals:                   "EQUALS",
	TextNotEquals:                "NOT EQUALS",
	TextStartsWithAnyOf:          "STARTS WITH ANY OF",
	TextNotStartsWithAnyOf:       "NOT STARTS WITH ANY OF",
	TextEndsWithAnyOf:            "ENDS WITH ANY OF",
	TextNotEndsWithAnyOf:         "NOT ENDS WITH ANY OF",
	ArrayContainsAnyOf:           "ARRAY CONTAINS ANY OF",
	ArrayNotContainsAnyOf:        "ARRAY NOT CONTAINS ANY OF",
}

func (c Comparator) String() string {
	if name, ok := comparatorNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Comparator(%d)", int(c))
}

// IsSensitive reports whether comparison values are stored hashed.
func (c Comparator) IsSensitive() bool {
	return (c >= SensitiveIsOneOf && c <= SensitiveIsNotOneOf) ||
		(c >= SensitiveEquals && c <= SensitiveArrayNotContainsAny)
}
