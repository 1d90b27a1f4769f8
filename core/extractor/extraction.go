package extractor

import (
	"bytes"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/siherrmann/codegraph/model"
)

// Node types that wrap a call or an import. The nearest one supplies the
// raw_text of CALLS and IMPORTS_* edges:
//   - python: call, import_statement or import_from_statement (whole statement)
//   - javascript: call_expression, import_statement (whole statement)
//   - go: call_expression, import_spec (one spec, also inside a grouped import)
var (
	callNodeTypes = map[string]bool{
		"call":            true,
		"call_expression": true,
	}
	importNodeTypes = map[string]bool{
		"import_statement":      true,
		"import_from_statement": true,
		"import_spec":           true,
	}
)

type localKey struct {
	entityType model.EntityType
	name       string
}

type span struct {
	start, end uint32
}

// extraction holds the state of one Extract call.
type extraction struct {
	x        *Extractor
	source   []byte
	filePath string
	file     *model.Entity
	result   *Result

	locals  map[localKey]*model.Entity
	classes map[span]*model.Entity
	methods map[string]*model.Entity
	globals map[uuid.UUID]bool
	edges   map[string]bool
}

func newExtraction(x *Extractor, source []byte, filePath string) *extraction {
	e := &extraction{
		x:        x,
		source:   source,
		filePath: filePath,
		result:   &Result{},
		locals:   map[localKey]*model.Entity{},
		classes:  map[span]*model.Entity{},
		methods:  map[string]*model.Entity{},
		globals:  map[uuid.UUID]bool{},
		edges:    map[string]bool{},
	}

	e.file = &model.Entity{
		ID:       e.localID(model.EntityTypeFile, filePath, 0),
		Type:     model.EntityTypeFile,
		Name:     filePath,
		FilePath: &e.filePath,
		Scope:    model.EntityScopeLocal,
	}
	// An empty file has no line range.
	if end, ok := lastRow(source); ok {
		start := 0
		e.file.StartLine = &start
		e.file.EndLine = &end
	}
	e.result.Entities = append(e.result.Entities, e.file)

	return e
}

func (e *extraction) handle(name string, node *sitter.Node) {
	switch name {
	case CaptureFunctionName:
		e.define(model.EntityTypeFunction, node)
	case CaptureClassName:
		e.define(model.EntityTypeClass, node)
	case CaptureVariableName:
		e.define(model.EntityTypeVariable, node)
	case CaptureMethodName:
		e.defineMethod(node)
	case CaptureCallTargetName:
		e.call(node)
	case CaptureImportModule:
		e.importModule(node)
	case CaptureImportName:
		if parent := node.Parent(); parent != nil && parent.ChildByFieldName("alias") != nil {
			// handled by import.name_original
			return
		}
		e.importName(model.RelationImportsName, node)
	case CaptureImportNameOriginal:
		e.importName(model.RelationImportsAliasedOriginal, node)
	case CaptureImportAlias:
		e.importName(model.RelationImportsAlias, node)
	case CaptureWildcardImport:
		e.wildcard(node)
	default:
		e.x.log.Debug("Ignoring capture", slog.String("capture", name), slog.String("file_path", e.filePath))
	}
}

// define creates a top-level definition contained by the file.
func (e *extraction) define(entityType model.EntityType, nameNode *sitter.Node) {
	name := nameNode.Content(e.source)
	key := localKey{entityType: entityType, name: qualifiedName(nameNode, name, e.source)}
	if _, ok := e.locals[key]; ok {
		return
	}

	def := definitionNode(nameNode)
	entity := e.newLocal(entityType, name, def)
	e.locals[key] = entity
	switch {
	case entityType == model.EntityTypeClass:
		e.classes[span{def.StartByte(), def.EndByte()}] = entity
	case def.Type() == "method_declaration":
		if _, ok := e.methods[name]; !ok {
			e.methods[name] = entity
		}
	}

	e.relate(e.file, entity, model.RelationContains, model.Metadata{"line": int(nameNode.StartPoint().Row)})
}

// defineMethod creates a function contained by its enclosing class.
func (e *extraction) defineMethod(nameNode *sitter.Node) {
	name := nameNode.Content(e.source)
	class := e.enclosingClass(nameNode)

	qualified := name
	if class != nil {
		qualified = class.Name + "." + name
	}
	key := localKey{entityType: model.EntityTypeFunction, name: qualified}
	if _, ok := e.locals[key]; ok {
		return
	}

	entity := e.newLocal(model.EntityTypeFunction, name, definitionNode(nameNode))
	e.locals[key] = entity
	if _, ok := e.methods[name]; !ok {
		e.methods[name] = entity
	}

	if class != nil {
		e.relate(class, entity, model.RelationContains, model.Metadata{"line": int(nameNode.StartPoint().Row)})
	}
}

// call links the file to the called entity, resolved locally first.
func (e *extraction) call(nameNode *sitter.Node) {
	name := nameNode.Content(e.source)

	target := e.resolve(name)
	if target == nil {
		target = e.global(model.EntityTypeExternalCallTarget, name)
	}

	properties := model.Metadata{
		"line":   int(nameNode.StartPoint().Row),
		"column": int(nameNode.StartPoint().Column),
	}
	if call := ancestor(nameNode, callNodeTypes); call != nil {
		properties["raw_text"] = call.Content(e.source)
	}

	e.relate(e.file, target, model.RelationCalls, properties)
}

func (e *extraction) resolve(name string) *model.Entity {
	if entity, ok := e.locals[localKey{entityType: model.EntityTypeFunction, name: name}]; ok {
		return entity
	}
	if entity, ok := e.locals[localKey{entityType: model.EntityTypeClass, name: name}]; ok {
		return entity
	}
	if entity, ok := e.methods[name]; ok {
		return entity
	}
	return nil
}

func (e *extraction) importModule(node *sitter.Node) {
	module := e.global(model.EntityTypeModule, unquote(node.Content(e.source)))
	e.relate(e.file, module, model.RelationImportsModule, e.importProperties(node))
}

func (e *extraction) importName(relType model.RelationType, node *sitter.Node) {
	imported := e.global(model.EntityTypeImportedName, node.Content(e.source))
	e.relate(e.file, imported, relType, e.importProperties(node))
}

// wildcard links the file to the module of the enclosing import statement.
func (e *extraction) wildcard(node *sitter.Node) {
	var moduleNode *sitter.Node
	for p := node.Parent(); p != nil && moduleNode == nil; p = p.Parent() {
		for _, field := range []string{"module_name", "source", "path"} {
			if n := p.ChildByFieldName(field); n != nil {
				moduleNode = n
				break
			}
		}
	}
	if moduleNode == nil {
		e.x.log.Warn("Wildcard import without module", slog.String("file_path", e.filePath), slog.Int("line", int(node.StartPoint().Row)))
		return
	}

	module := e.global(model.EntityTypeModule, unquote(moduleNode.Content(e.source)))
	properties := e.importProperties(node)
	properties["target_name"] = "*"
	e.relate(e.file, module, model.RelationImportsWildcard, properties)
}

func (e *extraction) importProperties(node *sitter.Node) model.Metadata {
	properties := model.Metadata{"line": int(node.StartPoint().Row)}
	if stmt := ancestor(node, importNodeTypes); stmt != nil {
		properties["raw_text"] = stmt.Content(e.source)
	}
	return properties
}

func (e *extraction) newLocal(entityType model.EntityType, name string, def *sitter.Node) *model.Entity {
	start, end := int(def.StartPoint().Row), int(def.EndPoint().Row)
	raw := def.Content(e.source)

	entity := &model.Entity{
		ID:        e.localID(entityType, name, start),
		Type:      entityType,
		Name:      name,
		FilePath:  &e.filePath,
		StartLine: &start,
		EndLine:   &end,
		RawText:   &raw,
		Scope:     model.EntityScopeLocal,
	}
	e.result.Entities = append(e.result.Entities, entity)

	return entity
}

// global returns the placeholder of type and name, adding it to the result once.
func (e *extraction) global(entityType model.EntityType, name string) *model.Entity {
	entity := model.NewGlobalEntity(entityType, name)
	if !e.globals[entity.ID] {
		e.globals[entity.ID] = true
		e.result.Entities = append(e.result.Entities, entity)
	}
	return entity
}

// relate adds an edge. A repeated edge merges its properties into the first one.
func (e *extraction) relate(source, target *model.Entity, relType model.RelationType, properties model.Metadata) {
	key := source.ID.String() + target.ID.String() + string(relType)
	if e.edges[key] {
		for _, r := range e.result.Relationships {
			if r.SourceID == source.ID && r.TargetID == target.ID && r.Type == relType {
				r.Properties = r.Properties.Merge(properties)
			}
		}
		return
	}
	e.edges[key] = true

	e.result.Relationships = append(e.result.Relationships, &model.Relationship{
		SourceID:   source.ID,
		TargetID:   target.ID,
		Type:       relType,
		Properties: properties,
	})
}

func (e *extraction) localID(entityType model.EntityType, name string, row int) uuid.UUID {
	if !e.x.config.DeterministicIDs {
		return uuid.New()
	}
	return uuid.NewSHA1(localNamespace, []byte(strings.Join([]string{e.filePath, string(entityType), name, strconv.Itoa(row)}, "|")))
}

func (e *extraction) enclosingClass(node *sitter.Node) *model.Entity {
	for p := node.Parent(); p != nil; p = p.Parent() {
		if class, ok := e.classes[span{p.StartByte(), p.EndByte()}]; ok {
			return class
		}
	}
	return nil
}

// definitionNode returns the node a name belongs to.
func definitionNode(nameNode *sitter.Node) *sitter.Node {
	if parent := nameNode.Parent(); parent != nil {
		return parent
	}
	return nameNode
}

// qualifiedName prefixes Go methods with their receiver type, so methods of
// different types with the same name stay apart: "func (s *S[T]) Run()" gives "S.Run".
func qualifiedName(nameNode *sitter.Node, name string, source []byte) string {
	def := definitionNode(nameNode)
	if def.Type() != "method_declaration" {
		return name
	}
	if receiver := receiverType(def, source); receiver != "" {
		return receiver + "." + name
	}
	return name
}

func receiverType(method *sitter.Node, source []byte) string {
	receiver := method.ChildByFieldName("receiver")
	if receiver == nil {
		return ""
	}
	for i := 0; i < int(receiver.NamedChildCount()); i++ {
		param := receiver.NamedChild(i)
		if param.Type() != "parameter_declaration" {
			continue
		}
		typeNode := param.ChildByFieldName("type")
		if typeNode == nil {
			return ""
		}
		typeName := strings.TrimLeft(strings.TrimSpace(typeNode.Content(source)), "*")
		if idx := strings.IndexByte(typeName, '['); idx >= 0 {
			typeName = typeName[:idx]
		}
		return strings.TrimSpace(typeName)
	}
	return ""
}

// lastRow returns the zero based row of the last line, counted the way
// ReadSnippet counts lines: a trailing newline does not start a new line.
func lastRow(source []byte) (int, bool) {
	if len(source) == 0 {
		return 0, false
	}
	rows := bytes.Count(source, []byte("\n"))
	if source[len(source)-1] == '\n' {
		rows--
	}
	return rows, true
}

func ancestor(node *sitter.Node, types map[string]bool) *sitter.Node {
	for p := node.Parent(); p != nil; p = p.Parent() {
		if types[p.Type()] {
			return p
		}
	}
	return nil
}

func unquote(s string) string {
	return strings.Trim(s, "\"'`")
}
