// Package graph exports a reconstructed program database into a Neo4j
// graph: types, functions and globals as nodes, member and signature
// references as relationships.
package graph

import (
	"context"
	"fmt"
	"log"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/jtang613/gostabs/pkg/stabs"
)

// Loader loads collected import results into a Neo4j database using
// batch UNWIND queries.
type Loader struct {
	driver neo4j.DriverWithContext
	ctx    context.Context
}

// NewLoader connects to Neo4j and returns a ready-to-use loader.
func NewLoader(ctx context.Context, uri, user, password string) (*Loader, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	return &Loader{driver: driver, ctx: ctx}, nil
}

// Close releases the underlying Neo4j driver resources.
func (l *Loader) Close() {
	l.driver.Close(l.ctx)
}

// runCypher runs a single Cypher statement with optional parameters.
func (l *Loader) runCypher(cypher string, params map[string]any) error {
	_, err := neo4j.ExecuteQuery(l.ctx, l.driver, cypher, params, neo4j.EagerResultTransformer)
	return err
}

// CleanGraph removes all previously loaded debug-info nodes and
// relationships.
func (l *Loader) CleanGraph() error {
	log.Println("Cleaning existing debug-info graph data...")
	queries := []string{
		"MATCH ()-[r:HAS_MEMBER]->() DELETE r",
		"MATCH ()-[r:HAS_PARAMETER]->() DELETE r",
		"MATCH ()-[r:HAS_LOCAL]->() DELETE r",
		"MATCH ()-[r:TYPED_AS]->() DELETE r",
		"MATCH (n:DebugType) DETACH DELETE n",
		"MATCH (n:DebugFunction) DETACH DELETE n",
		"MATCH (n:DebugGlobal) DETACH DELETE n",
	}
	for _, q := range queries {
		if err := l.runCypher(q, nil); err != nil {
			return err
		}
	}
	return nil
}

// CreateIndexes ensures the required Neo4j indexes exist.
func (l *Loader) CreateIndexes() error {
	log.Println("Creating indexes...")
	indexes := []string{
		"CREATE INDEX debug_type_name IF NOT EXISTS FOR (n:DebugType) ON (n.name)",
		"CREATE INDEX debug_func_entry IF NOT EXISTS FOR (n:DebugFunction) ON (n.entry)",
		"CREATE INDEX debug_global_addr IF NOT EXISTS FOR (n:DebugGlobal) ON (n.address)",
	}
	for _, q := range indexes {
		if err := l.runCypher(q, nil); err != nil {
			return err
		}
	}
	return nil
}

// LoadTypes upserts DebugType nodes and HAS_MEMBER edges between named
// composite types and their named member types.
func (l *Loader) LoadTypes(types []stabs.TypeInfo) error {
	log.Printf("Loading %d types...", len(types))
	batch := make([]map[string]any, 0, len(types))
	for _, t := range types {
		if t.Name == "" {
			continue
		}
		batch = append(batch, map[string]any{
			"name": t.Name,
			"kind": t.Kind,
			"size": t.Size,
		})
	}
	err := l.runCypher(
		`UNWIND $batch AS row
		 MERGE (n:DebugType {name: row.name})
		 SET n.kind = row.kind, n.size = row.size`,
		map[string]any{"batch": batch},
	)
	if err != nil {
		return err
	}

	members := make([]map[string]any, 0)
	for _, t := range types {
		if t.Name == "" {
			continue
		}
		for _, m := range t.Members {
			if m.TypeName == "" {
				continue
			}
			members = append(members, map[string]any{
				"owner":  t.Name,
				"member": m.Name,
				"tname":  m.TypeName,
				"offset": m.Offset,
			})
		}
	}
	if len(members) == 0 {
		return nil
	}
	return l.runCypher(
		`UNWIND $batch AS row
		 MATCH (owner:DebugType {name: row.owner}), (t:DebugType {name: row.tname})
		 MERGE (owner)-[r:HAS_MEMBER {name: row.member}]->(t)
		 SET r.offset = row.offset`,
		map[string]any{"batch": members},
	)
}

// LoadFunctions upserts DebugFunction nodes plus parameter and local
// edges into the named types they reference.
func (l *Loader) LoadFunctions(funcs []stabs.FunctionInfo) error {
	log.Printf("Loading %d functions...", len(funcs))
	batch := make([]map[string]any, 0, len(funcs))
	for _, fn := range funcs {
		batch = append(batch, map[string]any{
			"entry":       fn.Entry,
			"end":         fn.End,
			"name":        fn.Name,
			"demangled":   fn.DemangledName,
			"source_file": fn.SourceFile,
			"return_type": fn.ReturnType,
		})
	}
	err := l.runCypher(
		`UNWIND $batch AS row
		 MERGE (n:DebugFunction {entry: row.entry})
		 SET n.end = row.end, n.name = row.name, n.demangled = row.demangled,
		     n.source_file = row.source_file, n.return_type = row.return_type`,
		map[string]any{"batch": batch},
	)
	if err != nil {
		return err
	}

	params := make([]map[string]any, 0)
	locals := make([]map[string]any, 0)
	for _, fn := range funcs {
		for _, p := range fn.Parameters {
			params = append(params, map[string]any{
				"entry":   fn.Entry,
				"name":    p.Name,
				"tname":   p.TypeName,
				"storage": p.Storage,
			})
		}
		for _, lv := range fn.Locals {
			locals = append(locals, map[string]any{
				"entry":  fn.Entry,
				"name":   lv.Name,
				"tname":  lv.TypeName,
				"offset": lv.StackOffset,
			})
		}
	}
	if len(params) > 0 {
		err = l.runCypher(
			`UNWIND $batch AS row
			 MATCH (f:DebugFunction {entry: row.entry}), (t:DebugType {name: row.tname})
			 MERGE (f)-[r:HAS_PARAMETER {name: row.name}]->(t)
			 SET r.storage = row.storage`,
			map[string]any{"batch": params},
		)
		if err != nil {
			return err
		}
	}
	if len(locals) > 0 {
		return l.runCypher(
			`UNWIND $batch AS row
			 MATCH (f:DebugFunction {entry: row.entry}), (t:DebugType {name: row.tname})
			 MERGE (f)-[r:HAS_LOCAL {name: row.name}]->(t)
			 SET r.stack_offset = row.offset`,
			map[string]any{"batch": locals},
		)
	}
	return nil
}

// LoadGlobals upserts DebugGlobal nodes and TYPED_AS edges into the
// named types they reference.
func (l *Loader) LoadGlobals(globals []stabs.GlobalInfo) error {
	log.Printf("Loading %d globals...", len(globals))
	batch := make([]map[string]any, 0, len(globals))
	for _, g := range globals {
		batch = append(batch, map[string]any{
			"address":   g.Address,
			"name":      g.Name,
			"demangled": g.DemangledName,
			"tname":     g.TypeName,
			"length":    g.Length,
		})
	}
	err := l.runCypher(
		`UNWIND $batch AS row
		 MERGE (n:DebugGlobal {address: row.address})
		 SET n.name = row.name, n.demangled = row.demangled,
		     n.type_name = row.tname, n.length = row.length`,
		map[string]any{"batch": batch},
	)
	if err != nil {
		return err
	}
	return l.runCypher(
		`UNWIND $batch AS row
		 MATCH (g:DebugGlobal {address: row.address}), (t:DebugType {name: row.tname})
		 MERGE (g)-[:TYPED_AS]->(t)`,
		map[string]any{"batch": batch},
	)
}

// LoadReport loads a complete report in dependency order.
func (l *Loader) LoadReport(report *stabs.Report) error {
	if err := l.LoadTypes(report.Types); err != nil {
		return err
	}
	if err := l.LoadFunctions(report.Functions); err != nil {
		return err
	}
	return l.LoadGlobals(report.Globals)
}
