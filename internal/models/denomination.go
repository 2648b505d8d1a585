package models

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var ErrUnknownDenomination = errors.New("unknown coupon denomination")

// Denomination is the face value of a coupon tier.
type Denomination int

var costs = map[Denomination]int64{
	500:  1,
	1000: 4,
	2000: 15,
	4000: 25,
}

// CostOf returns the credit cost of d.
func CostOf(d Denomination) (int64, error) {
	cost, ok := costs[d]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownDenomination, d)
	}
	return cost, nil
}

// Denominations lists the known denominations in ascending order.
func Denominations() []Denomination {
	out := make([]Denomination, 0, len(costs))
	for d := range costs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func ParseDenomination(raw string) (Denomination, error) {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnknownDenomination, raw)
	}
	d := Denomination(v)
	if _, ok := costs[d]; !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownDenomination, v)
	}
	return d, nil
}

func (d Denomination) String() string {
	return strconv.Itoa(int(d))
}
