// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package catalog

import "github.com/molecula/histql/wire"

// Document is the declarative config a Catalog is built from. It is
// written as JSON or YAML:
//
//	tables:
//	- name: accounts
//	  short_name: account
//	  fields:
//	  - {name: name, type: name}
//	  - {name: balance, type: uint64}
//	indexes:
//	- {name: accounts_by_name, table: accounts, short_name: name, range_fields: [name]}
//	queries:
//	- name: get.account
//	  function: get_account
//	  index: accounts_by_name
//	  max_results: 1
type Document struct {
	Tables  []TableDoc `json:"tables"`
	Indexes []IndexDoc `json:"indexes"`
	Queries []QueryDoc `json:"queries"`
}

type FieldDoc struct {
	Name          string `json:"name"`
	Type          string `json:"type"`
	BeginOptional bool   `json:"begin_optional,omitempty"`
	EndOptional   bool   `json:"end_optional,omitempty"`
}

type TableDoc struct {
	Name      string     `json:"name"`
	ShortName wire.Name  `json:"short_name"`
	Delta     bool       `json:"delta,omitempty"`
	Fields    []FieldDoc `json:"fields"`
	KeyFields []string   `json:"key_fields,omitempty"`
}

type IndexDoc struct {
	Name        string    `json:"name"`
	Table       string    `json:"table"`
	ShortName   wire.Name `json:"short_name"`
	RangeFields []string  `json:"range_fields"`
	SortFields  []string  `json:"sort_fields,omitempty"`
}

type JoinDoc struct {
	Table     string   `json:"table"`
	Index     string   `json:"index"`
	KeyFields []string `json:"key_fields"`
	Fields    []string `json:"fields"`
}

type QueryDoc struct {
	Name     wire.Name `json:"name"`
	Function string    `json:"function"`

	// Table is optional; when set it must be the index's table.
	Table            string     `json:"table,omitempty"`
	Index            string     `json:"index"`
	ArgTypes         []string   `json:"arg_types,omitempty"`
	HasBlockSnapshot bool       `json:"has_block_snapshot,omitempty"`
	MaxResults       uint32     `json:"max_results"`
	ResultFields     []FieldDoc `json:"result_fields,omitempty"`
	Join             *JoinDoc   `json:"join,omitempty"`
}
