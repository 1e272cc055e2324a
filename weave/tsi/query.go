/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package tsi

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ErrInvalidQuery is returned for malformed query expressions.
var ErrInvalidQuery = errors.New("invalid query expression")

// Query is a boolean expression tree evaluated by the trace server.
type Query struct {
	Expr Operand `json:"$expr"`
}

// Operand is a node of a query expression.
type Operand interface {
	isOperand()
}

type (
	// Literal is a constant.
	Literal struct{ Value any }
	// GetField reads a (dotted) field of the row being filtered.
	GetField struct{ Field string }
	// AndOp is true when every operand is true.
	AndOp struct{ Operands []Operand }
	// OrOp is true when any operand is true.
	OrOp struct{ Operands []Operand }
	// NotOp negates its operand.
	NotOp struct{ Operand Operand }
	// EqOp compares two operands for equality.
	EqOp struct{ Left, Right Operand }
	// GtOp is Left > Right.
	GtOp struct{ Left, Right Operand }
	// GteOp is Left >= Right.
	GteOp struct{ Left, Right Operand }
	// InOp is true when Left equals one of Values.
	InOp struct {
		Left   Operand
		Values []Operand
	}
)

func (Literal) isOperand()  {}
func (GetField) isOperand() {}
func (AndOp) isOperand()    {}
func (OrOp) isOperand()     {}
func (NotOp) isOperand()    {}
func (EqOp) isOperand()     {}
func (GtOp) isOperand()     {}
func (GteOp) isOperand()    {}
func (InOp) isOperand()     {}

// Lit returns a literal operand.
func Lit(v any) Operand { return Literal{Value: v} }

// Field returns a field reference.
func Field(name string) Operand { return GetField{Field: name} }

// And conjoins operands.
func And(ops ...Operand) Operand { return AndOp{Operands: ops} }

// Or disjoins operands.
func Or(ops ...Operand) Operand { return OrOp{Operands: ops} }

// Not negates op.
func Not(op Operand) Operand { return NotOp{Operand: op} }

// Eq compares l and r.
func Eq(l, r Operand) Operand { return EqOp{Left: l, Right: r} }

// Gt is l > r.
func Gt(l, r Operand) Operand { return GtOp{Left: l, Right: r} }

// Gte is l >= r.
func Gte(l, r Operand) Operand { return GteOp{Left: l, Right: r} }

// In is l in values.
func In(l Operand, values ...Operand) Operand { return InOp{Left: l, Values: values} }

func (o Literal) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{"$literal": o.Value})
}

func (o GetField) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{"$getField": o.Field})
}

func (o AndOp) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{"$and": o.Operands})
}

func (o OrOp) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{"$or": o.Operands})
}

func (o NotOp) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{"$not": []Operand{o.Operand}})
}

func (o EqOp) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{"$eq": []Operand{o.Left, o.Right}})
}

func (o GtOp) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{"$gt": []Operand{o.Left, o.Right}})
}

func (o GteOp) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{"$gte": []Operand{o.Left, o.Right}})
}

func (o InOp) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{"$in": []any{o.Left, o.Values}})
}

// UnmarshalJSON parses the wire form produced by MarshalJSON.
func (q *Query) UnmarshalJSON(b []byte) error {
	var raw struct {
		Expr any `json:"$expr"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	op, err := ParseOperand(raw.Expr)
	if err != nil {
		return err
	}
	q.Expr = op
	return nil
}

// ParseOperand builds an operand from its decoded JSON form.
func ParseOperand(v any) (Operand, error) {
	m, ok := v.(map[string]any)
	if !ok || len(m) != 1 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, v)
	}
	for key, arg := range m {
		switch key {
		case "$literal":
			return Literal{Value: arg}, nil
		case "$getField":
			s, ok := arg.(string)
			if !ok {
				return nil, fmt.Errorf("%w: $getField wants a string, got %T", ErrInvalidQuery, arg)
			}
			return GetField{Field: s}, nil
		case "$and", "$or", "$not", "$eq", "$gt", "$gte":
			ops, err := parseList(key, arg)
			if err != nil {
				return nil, err
			}
			switch key {
			case "$and":
				return AndOp{Operands: ops}, nil
			case "$or":
				return OrOp{Operands: ops}, nil
			case "$not":
				if len(ops) != 1 {
					return nil, fmt.Errorf("%w: $not wants one operand", ErrInvalidQuery)
				}
				return NotOp{Operand: ops[0]}, nil
			}
			if len(ops) != 2 {
				return nil, fmt.Errorf("%w: %s wants two operands", ErrInvalidQuery, key)
			}
			switch key {
			case "$eq":
				return EqOp{Left: ops[0], Right: ops[1]}, nil
			case "$gt":
				return GtOp{Left: ops[0], Right: ops[1]}, nil
			default:
				return GteOp{Left: ops[0], Right: ops[1]}, nil
			}
		case "$in":
			pair, ok := arg.([]any)
			if !ok || len(pair) != 2 {
				return nil, fmt.Errorf("%w: $in wants [operand, [operands]]", ErrInvalidQuery)
			}
			left, err := ParseOperand(pair[0])
			if err != nil {
				return nil, err
			}
			values, err := parseList(key, pair[1])
			if err != nil {
				return nil, err
			}
			return InOp{Left: left, Values: values}, nil
		}
		return nil, fmt.Errorf("%w: unknown operator %s", ErrInvalidQuery, key)
	}
	panic("unreachable")
}

func parseList(key string, v any) ([]Operand, error) {
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s wants a list, got %T", ErrInvalidQuery, key, v)
	}
	ops := make([]Operand, len(list))
	for i, item := range list {
		op, err := ParseOperand(item)
		if err != nil {
			return nil, err
		}
		ops[i] = op
	}
	return ops, nil
}

// Getter resolves GetField operands against a row.
type Getter func(field string) (any, bool)

// Match evaluates q against a row. A nil query matches everything.
func Match(q *Query, get Getter) (bool, error) {
	if q == nil || q.Expr == nil {
		return true, nil
	}
	v, err := Evaluate(q.Expr, get)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: expression is %T, not a boolean", ErrInvalidQuery, v)
	}
	return b, nil
}

// Evaluate computes the value of op against a row.
func Evaluate(op Operand, get Getter) (any, error) {
	switch o := op.(type) {
	case Literal:
		return o.Value, nil
	case GetField:
		v, _ := get(o.Field)
		return v, nil
	case AndOp:
		for _, sub := range o.Operands {
			ok, err := evalBool(sub, get)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case OrOp:
		for _, sub := range o.Operands {
			ok, err := evalBool(sub, get)
			if err != nil || ok {
				return ok, err
			}
		}
		return false, nil
	case NotOp:
		ok, err := evalBool(o.Operand, get)
		return !ok, err
	case EqOp:
		l, r, err := evalPair(o.Left, o.Right, get)
		if err != nil {
			return false, err
		}
		return equal(l, r), nil
	case GtOp:
		l, r, err := evalPair(o.Left, o.Right, get)
		if err != nil {
			return false, err
		}
		c, ok := compare(l, r)
		return ok && c > 0, nil
	case GteOp:
		l, r, err := evalPair(o.Left, o.Right, get)
		if err != nil {
			return false, err
		}
		c, ok := compare(l, r)
		return ok && c >= 0, nil
	case InOp:
		l, err := Evaluate(o.Left, get)
		if err != nil {
			return false, err
		}
		for _, vop := range o.Values {
			v, err := Evaluate(vop, get)
			if err != nil {
				return false, err
			}
			if equal(l, v) {
				return true, nil
			}
		}
		return false, nil
	}
	return nil, fmt.Errorf("%w: unknown operand %T", ErrInvalidQuery, op)
}

func evalBool(op Operand, get Getter) (bool, error) {
	v, err := Evaluate(op, get)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: operand is %T, not a boolean", ErrInvalidQuery, v)
	}
	return b, nil
}

func evalPair(l, r Operand, get Getter) (any, any, error) {
	lv, err := Evaluate(l, get)
	if err != nil {
		return nil, nil, err
	}
	rv, err := Evaluate(r, get)
	if err != nil {
		return nil, nil, err
	}
	return lv, rv, nil
}

func equal(l, r any) bool {
	if lf, ok := toFloat(l); ok {
		rf, ok := toFloat(r)
		return ok && lf == rf
	}
	return reflect.DeepEqual(l, r)
}

func compare(l, r any) (int, bool) {
	if lf, ok := toFloat(l); ok {
		rf, ok := toFloat(r)
		if !ok {
			return 0, false
		}
		switch {
		case lf < rf:
			return -1, true
		case lf > rf:
			return 1, true
		}
		return 0, true
	}
	ls, lok := l.(string)
	rs, rok := r.(string)
	if !lok || !rok {
		return 0, false
	}
	return strings.Compare(ls, rs), true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// LookupPath resolves a dotted path such as "payload.emoji" in nested maps.
func LookupPath(m map[string]any, path string) (any, bool) {
	var cur any = m
	for part := range strings.SplitSeq(path, ".") {
		mm, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = mm[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}
