// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package catalog holds the schema shared by every query session: tables,
// their indexes, and the fixed set of queries a client may run. A Catalog is
// built once from a config document and is never modified afterwards, so
// sessions read it concurrently without locking.
package catalog

import (
	"fmt"
	"os"
	"sort"

	"github.com/benbjohnson/immutable"
	"github.com/cespare/xxhash"
	"github.com/molecula/histql"
	"github.com/molecula/histql/codec"
	"github.com/molecula/histql/errors"
	"github.com/molecula/histql/wire"
	"sigs.k8s.io/yaml"
)

// Field is a column of a table, or a column of a query result.
type Field struct {
	Name string
	Type codec.Type

	// Ordinal is the field's position in its table, used to index the
	// positions produced by ScanPositions.
	Ordinal int

	// BeginOptional and EndOptional mark the first and last field of a
	// block which is either entirely present or entirely absent. A leading
	// bool announces the block.
	BeginOptional bool
	EndOptional   bool
}

type Table struct {
	Name      string
	ShortName wire.Name

	// Delta tables hold one version of each row per block it changed in.
	Delta  bool
	Fields []*Field

	// KeyFields identify a row within the table. They default to the first
	// field.
	KeyFields []*Field

	// Indexes lists the table's indexes in declaration order.
	Indexes []*Index

	fields map[string]*Field
}

// Field returns the field named name.
func (t *Table) Field(name string) (*Field, error) {
	f, ok := t.fields[name]
	if !ok {
		return nil, errors.New(errors.ErrSchema, fmt.Sprintf("table '%s' has no field '%s'", t.Name, name))
	}
	return f, nil
}

type Index struct {
	Name      string
	ShortName wire.Name
	Table     *Table

	// RangeFields form the scan key, in order.
	RangeFields []*Field

	// SortFields follow the range fields in each index key so that rows
	// sharing range values get distinct keys. They default to the table's
	// key fields.
	SortFields []*Field
}

// Join enriches each row of a query with fields of at most one row of
// another table.
type Join struct {
	Table *Table
	Index *Index

	// KeyFields are fields of the query's table whose values form the
	// lookup key into Index, one per range field.
	KeyFields []*Field

	// Fields are fields of the joined table appended to each result row.
	Fields []*Field
}

type Query struct {
	Name     wire.Name
	Function string
	Table    *Table
	Index    *Index

	// ArgTypes are leading arguments which are not index range values.
	ArgTypes         []codec.Type
	HasBlockSnapshot bool
	MaxResults       uint32
	ResultFields     []*Field
	Join             *Join
}

// EffectiveMax returns the number of rows a request asking for requested
// rows may return.
func (q *Query) EffectiveMax(requested uint32) uint32 {
	if requested < q.MaxResults {
		return requested
	}
	return q.MaxResults
}

// StoredLayout reports whether the result fields lay out exactly like a
// stored row of the query's table followed by the joined fields. Field
// names may differ; types and optional markers must match.
func (q *Query) StoredLayout() bool {
	var joined []*Field
	if q.Join != nil {
		joined = q.Join.Fields
	}
	stored := q.Table.Fields
	if len(q.ResultFields) != len(stored)+len(joined) {
		return false
	}
	for i, f := range q.ResultFields {
		want := &Field{}
		if i < len(stored) {
			want = stored[i]
		} else {
			want.Type = joined[i-len(stored)].Type
		}
		if f.Type.Name() != want.Type.Name() || f.BeginOptional != want.BeginOptional || f.EndOptional != want.EndOptional {
			return false
		}
	}
	return true
}

// Snapshot clamps a requested snapshot block to head.
func Snapshot(requested, head uint32) uint32 {
	if requested < head {
		return requested
	}
	return head
}

// Catalog is the resolved, validated schema.
type Catalog struct {
	tables  *immutable.SortedMap[string, *Table]
	indexes *immutable.SortedMap[string, *Index]
	queries *immutable.Map[wire.Name, *Query]
}

// Lookup returns the query named name.
func (c *Catalog) Lookup(name wire.Name) (*Query, error) {
	q, ok := c.queries.Get(name)
	if !ok {
		return nil, histql.NewErrUnknownQuery(name)
	}
	return q, nil
}

func (c *Catalog) Table(name string) (*Table, error) {
	t, ok := c.tables.Get(name)
	if !ok {
		return nil, errors.New(errors.ErrSchema, fmt.Sprintf("unknown table '%s'", name))
	}
	return t, nil
}

func (c *Catalog) Index(name string) (*Index, error) {
	idx, ok := c.indexes.Get(name)
	if !ok {
		return nil, errors.New(errors.ErrSchema, fmt.Sprintf("unknown index '%s'", name))
	}
	return idx, nil
}

// Tables returns every table ordered by name.
func (c *Catalog) Tables() []*Table {
	tables := make([]*Table, 0, c.tables.Len())
	itr := c.tables.Iterator()
	for !itr.Done() {
		_, t, _ := itr.Next()
		tables = append(tables, t)
	}
	return tables
}

// Indexes returns every index ordered by name.
func (c *Catalog) Indexes() []*Index {
	indexes := make([]*Index, 0, c.indexes.Len())
	itr := c.indexes.Iterator()
	for !itr.Done() {
		_, idx, _ := itr.Next()
		indexes = append(indexes, idx)
	}
	return indexes
}

// Queries returns every query ordered by name.
func (c *Catalog) Queries() []*Query {
	queries := make([]*Query, 0, c.queries.Len())
	itr := c.queries.Iterator()
	for !itr.Done() {
		_, q, _ := itr.Next()
		queries = append(queries, q)
	}
	sort.Slice(queries, func(i, j int) bool {
		return queries[i].Name.String() < queries[j].Name.String()
	})
	return queries
}

// nameHasher implements immutable.Hasher for chain names.
type nameHasher struct{}

// Hash returns a hash for key. Short names leave their low bits zero, so
// the bits are mixed before folding.
func (h nameHasher) Hash(key wire.Name) uint32 {
	v := xxhash.Sum64(wire.AppendName(nil, key))
	return uint32(v) ^ uint32(v>>32)
}

// Equal returns true if a is equal to b.
func (h nameHasher) Equal(a, b wire.Name) bool {
	return a == b
}

// Load reads and parses the config document at path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading catalog")
	}
	c, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "loading catalog '%s'", path)
	}
	return c, nil
}

// Parse decodes a config document in JSON or YAML and builds a Catalog.
// Unknown keys are rejected.
func Parse(data []byte) (*Catalog, error) {
	var doc Document
	if err := yaml.UnmarshalStrict(data, &doc); err != nil {
		return nil, errors.WithCode(err, errors.ErrSchema, "decoding catalog document")
	}
	return New(&doc)
}

// New validates doc and resolves its references.
func New(doc *Document) (*Catalog, error) {
	tables := immutable.NewSortedMapBuilder[string, *Table](nil)
	for _, td := range doc.Tables {
		if _, ok := tables.Get(td.Name); ok {
			return nil, errors.New(errors.ErrSchema, fmt.Sprintf("duplicate table '%s'", td.Name))
		}
		t, err := newTable(td)
		if err != nil {
			return nil, err
		}
		tables.Set(t.Name, t)
	}
	shortNames := make(map[wire.Name]string)
	for _, t := range tablesOf(tables) {
		if other, ok := shortNames[t.ShortName]; ok {
			return nil, errors.New(errors.ErrSchema, fmt.Sprintf("tables '%s' and '%s' share short name '%s'", other, t.Name, t.ShortName))
		}
		shortNames[t.ShortName] = t.Name
	}

	indexes := immutable.NewSortedMapBuilder[string, *Index](nil)
	indexShortNames := make(map[string]string)
	for _, id := range doc.Indexes {
		if _, ok := indexes.Get(id.Name); ok {
			return nil, errors.New(errors.ErrSchema, fmt.Sprintf("duplicate index '%s'", id.Name))
		}
		t, ok := tables.Get(id.Table)
		if !ok {
			return nil, errors.New(errors.ErrSchema, fmt.Sprintf("index '%s': unknown table '%s'", id.Name, id.Table))
		}
		idx, err := newIndex(id, t)
		if err != nil {
			return nil, err
		}
		key := t.Name + "/" + idx.ShortName.String()
		if other, ok := indexShortNames[key]; ok {
			return nil, errors.New(errors.ErrSchema, fmt.Sprintf("indexes '%s' and '%s' share short name '%s'", other, idx.Name, idx.ShortName))
		}
		indexShortNames[key] = idx.Name
		indexes.Set(idx.Name, idx)
		t.Indexes = append(t.Indexes, idx)
	}

	queries := immutable.NewMapBuilder[wire.Name, *Query](nameHasher{})
	for _, qd := range doc.Queries {
		if _, ok := queries.Get(qd.Name); ok {
			return nil, errors.New(errors.ErrSchema, fmt.Sprintf("duplicate query '%s'", qd.Name))
		}
		q, err := newQuery(qd, tables, indexes)
		if err != nil {
			return nil, err
		}
		queries.Set(q.Name, q)
	}

	return &Catalog{
		tables:  tables.Map(),
		indexes: indexes.Map(),
		queries: queries.Map(),
	}, nil
}

func tablesOf(b *immutable.SortedMapBuilder[string, *Table]) []*Table {
	var tables []*Table
	itr := b.Iterator()
	for !itr.Done() {
		_, t, _ := itr.Next()
		tables = append(tables, t)
	}
	return tables
}

func newFields(owner string, docs []FieldDoc) ([]*Field, map[string]*Field, error) {
	fields := make([]*Field, 0, len(docs))
	byName := make(map[string]*Field, len(docs))
	for i, fd := range docs {
		if fd.Name == "" {
			return nil, nil, errors.New(errors.ErrSchema, fmt.Sprintf("%s: field %d has no name", owner, i))
		}
		if _, ok := byName[fd.Name]; ok {
			return nil, nil, errors.New(errors.ErrSchema, fmt.Sprintf("%s: duplicate field '%s'", owner, fd.Name))
		}
		typ, err := codec.Lookup(fd.Type)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "%s: field '%s'", owner, fd.Name)
		}
		f := &Field{
			Name:          fd.Name,
			Type:          typ,
			Ordinal:       i,
			BeginOptional: fd.BeginOptional,
			EndOptional:   fd.EndOptional,
		}
		fields = append(fields, f)
		byName[f.Name] = f
	}
	if err := checkOptional(owner, fields); err != nil {
		return nil, nil, err
	}
	return fields, byName, nil
}

// checkOptional ensures optional markers form closed, non-nested blocks.
func checkOptional(owner string, fields []*Field) error {
	open := ""
	for _, f := range fields {
		if f.BeginOptional {
			if open != "" {
				return errors.New(errors.ErrSchema, fmt.Sprintf("%s: optional block starting at '%s' opens inside block starting at '%s'", owner, f.Name, open))
			}
			open = f.Name
		}
		if f.EndOptional {
			if open == "" {
				return errors.New(errors.ErrSchema, fmt.Sprintf("%s: optional block ending at '%s' was never opened", owner, f.Name))
			}
			open = ""
		}
	}
	if open != "" {
		return errors.New(errors.ErrSchema, fmt.Sprintf("%s: optional block starting at '%s' is never closed", owner, open))
	}
	return nil
}

func newTable(td TableDoc) (*Table, error) {
	if td.Name == "" {
		return nil, errors.New(errors.ErrSchema, "table has no name")
	}
	fields, byName, err := newFields("table '"+td.Name+"'", td.Fields)
	if err != nil {
		return nil, err
	}
	t := &Table{
		Name:      td.Name,
		ShortName: td.ShortName,
		Delta:     td.Delta,
		Fields:    fields,
		fields:    byName,
	}
	if len(fields) == 0 {
		return nil, errors.New(errors.ErrSchema, fmt.Sprintf("table '%s' has no fields", td.Name))
	}
	t.KeyFields = fields[:1]
	if len(td.KeyFields) > 0 {
		if t.KeyFields, err = resolveFields(t, td.KeyFields, "table '"+td.Name+"' key"); err != nil {
			return nil, err
		}
	}
	for _, f := range t.KeyFields {
		if f.BeginOptional || f.EndOptional || inOptionalBlock(fields, f) {
			return nil, errors.New(errors.ErrSchema, fmt.Sprintf("table '%s': key field '%s' is optional", td.Name, f.Name))
		}
	}
	return t, nil
}

// inOptionalBlock reports whether f lies inside an optional block.
func inOptionalBlock(fields []*Field, f *Field) bool {
	open := false
	for _, other := range fields {
		if other.BeginOptional {
			open = true
		}
		if other == f {
			return open
		}
		if other.EndOptional {
			open = false
		}
	}
	return false
}

func resolveFields(t *Table, names []string, what string) ([]*Field, error) {
	fields := make([]*Field, 0, len(names))
	for _, name := range names {
		f, err := t.Field(name)
		if err != nil {
			return nil, errors.Wrap(err, what)
		}
		fields = append(fields, f)
	}
	return fields, nil
}

func newIndex(id IndexDoc, t *Table) (*Index, error) {
	what := "index '" + id.Name + "'"
	if len(id.RangeFields) == 0 {
		return nil, errors.New(errors.ErrSchema, what+" has no range fields")
	}
	rangeFields, err := resolveFields(t, id.RangeFields, what)
	if err != nil {
		return nil, err
	}
	for _, f := range rangeFields {
		if inOptionalBlock(t.Fields, f) {
			return nil, errors.New(errors.ErrSchema, fmt.Sprintf("%s: range field '%s' is optional", what, f.Name))
		}
	}
	sortFields := t.KeyFields
	if len(id.SortFields) > 0 {
		if sortFields, err = resolveFields(t, id.SortFields, what); err != nil {
			return nil, err
		}
	}
	return &Index{
		Name:        id.Name,
		ShortName:   id.ShortName,
		Table:       t,
		RangeFields: rangeFields,
		SortFields:  sortFields,
	}, nil
}

func newQuery(qd QueryDoc, tables *immutable.SortedMapBuilder[string, *Table], indexes *immutable.SortedMapBuilder[string, *Index]) (*Query, error) {
	what := fmt.Sprintf("query '%s'", qd.Name)
	if qd.Function == "" {
		return nil, errors.New(errors.ErrSchema, what+" has no function")
	}
	idx, ok := indexes.Get(qd.Index)
	if !ok {
		return nil, errors.New(errors.ErrSchema, fmt.Sprintf("%s: unknown index '%s'", what, qd.Index))
	}
	q := &Query{
		Name:             qd.Name,
		Function:         qd.Function,
		Table:            idx.Table,
		Index:            idx,
		HasBlockSnapshot: qd.HasBlockSnapshot,
		MaxResults:       qd.MaxResults,
	}
	if qd.Table != "" && qd.Table != idx.Table.Name {
		return nil, errors.New(errors.ErrSchema, fmt.Sprintf("%s: index '%s' belongs to table '%s', not '%s'", what, idx.Name, idx.Table.Name, qd.Table))
	}
	for _, name := range qd.ArgTypes {
		typ, err := codec.Lookup(name)
		if err != nil {
			return nil, errors.Wrap(err, what)
		}
		q.ArgTypes = append(q.ArgTypes, typ)
	}

	if qd.Join != nil {
		join, err := newJoin(what, q.Table, *qd.Join, tables, indexes)
		if err != nil {
			return nil, err
		}
		q.Join = join
	}

	if len(qd.ResultFields) > 0 {
		fields, _, err := newFields(what+" result", qd.ResultFields)
		if err != nil {
			return nil, err
		}
		q.ResultFields = fields
	} else {
		q.ResultFields = defaultResultFields(q)
	}
	return q, nil
}

// defaultResultFields is the table's fields followed by the joined fields,
// which are always present.
func defaultResultFields(q *Query) []*Field {
	fields := make([]*Field, 0, len(q.Table.Fields))
	fields = append(fields, q.Table.Fields...)
	if q.Join != nil {
		for _, f := range q.Join.Fields {
			fields = append(fields, &Field{
				Name:    f.Name,
				Type:    f.Type,
				Ordinal: len(fields),
			})
		}
	}
	return fields
}

func newJoin(what string, t *Table, jd JoinDoc, tables *immutable.SortedMapBuilder[string, *Table], indexes *immutable.SortedMapBuilder[string, *Index]) (*Join, error) {
	jt, ok := tables.Get(jd.Table)
	if !ok {
		return nil, errors.New(errors.ErrSchema, fmt.Sprintf("%s: unknown join table '%s'", what, jd.Table))
	}
	jidx, ok := indexes.Get(jd.Index)
	if !ok {
		return nil, errors.New(errors.ErrSchema, fmt.Sprintf("%s: unknown join index '%s'", what, jd.Index))
	} else if jidx.Table != jt {
		return nil, errors.New(errors.ErrSchema, fmt.Sprintf("%s: join index '%s' does not belong to table '%s'", what, jd.Index, jd.Table))
	}
	keyFields, err := resolveFields(t, jd.KeyFields, what+" join key")
	if err != nil {
		return nil, err
	}
	if len(keyFields) != len(jidx.RangeFields) {
		return nil, errors.New(errors.ErrSchema, fmt.Sprintf("%s: join key has %d fields, index '%s' has %d range fields", what, len(keyFields), jidx.Name, len(jidx.RangeFields)))
	}
	for i, f := range keyFields {
		if f.Type != jidx.RangeFields[i].Type {
			return nil, errors.New(errors.ErrSchema, fmt.Sprintf("%s: join key field '%s' is %s, index field '%s' is %s",
				what, f.Name, f.Type.Name(), jidx.RangeFields[i].Name, jidx.RangeFields[i].Type.Name()))
		}
	}
	if len(jd.Fields) == 0 {
		return nil, errors.New(errors.ErrSchema, what+": join has no fields")
	}
	fields, err := resolveFields(jt, jd.Fields, what+" join")
	if err != nil {
		return nil, err
	}
	return &Join{
		Table:     jt,
		Index:     jidx,
		KeyFields: keyFields,
		Fields:    fields,
	}, nil
}
