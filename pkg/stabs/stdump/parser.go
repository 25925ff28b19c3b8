package stdump

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/jtang613/gostabs/pkg/stabs/ast"
)

// Parse decodes a stdump print_json document into the AST. The document
// format is a forest of node envelopes discriminated by a "descriptor"
// field. Any structural problem aborts the parse; tolerance for bad
// items lives in the importer, not here.
func Parse(data []byte) (*ast.Document, error) {
	var raw struct {
		Files             []json.RawMessage `json:"files"`
		DeduplicatedTypes []json.RawMessage `json:"deduplicated_types"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}

	doc := &ast.Document{
		DeduplicatedTypes: make([]ast.Node, len(raw.DeduplicatedTypes)),
	}
	for i, msg := range raw.DeduplicatedTypes {
		node, err := decodeNode(msg)
		if err != nil {
			return nil, fmt.Errorf("deduplicated type %d: %w", i, err)
		}
		doc.DeduplicatedTypes[i] = node
	}
	for i, msg := range raw.Files {
		file, err := decodeSourceFile(msg)
		if err != nil {
			return nil, fmt.Errorf("source file %d: %w", i, err)
		}
		doc.Files = append(doc.Files, file)
	}
	return doc, nil
}

type nodeEnvelope struct {
	Descriptor   string `json:"descriptor"`
	Name         string `json:"name"`
	StorageClass string `json:"storage_class"`
}

func decodeHeader(env nodeEnvelope) (ast.NodeHeader, error) {
	sc, err := storageClass(env.StorageClass)
	if err != nil {
		return ast.NodeHeader{}, err
	}
	return ast.NodeHeader{Name: env.Name, StorageClass: sc}, nil
}

func storageClass(s string) (ast.StorageClass, error) {
	switch s {
	case "", "none":
		return ast.StorageClassNone, nil
	case "typedef":
		return ast.StorageClassTypedef, nil
	case "extern":
		return ast.StorageClassExtern, nil
	case "static":
		return ast.StorageClassStatic, nil
	case "auto":
		return ast.StorageClassAuto, nil
	case "register":
		return ast.StorageClassRegister, nil
	default:
		return 0, fmt.Errorf("unknown storage class %q", s)
	}
}

var builtinClasses = map[string]ast.BuiltinClass{
	"void":                     ast.BuiltinVoid,
	"8-bit integer":            ast.BuiltinUnqualified8,
	"8-bit signed integer":     ast.BuiltinSigned8,
	"8-bit unsigned integer":   ast.BuiltinUnsigned8,
	"8-bit boolean":            ast.BuiltinBool8,
	"16-bit signed integer":    ast.BuiltinSigned16,
	"16-bit unsigned integer":  ast.BuiltinUnsigned16,
	"32-bit signed integer":    ast.BuiltinSigned32,
	"32-bit unsigned integer":  ast.BuiltinUnsigned32,
	"32-bit floating point":    ast.BuiltinFloat32,
	"64-bit signed integer":    ast.BuiltinSigned64,
	"64-bit unsigned integer":  ast.BuiltinUnsigned64,
	"64-bit floating point":    ast.BuiltinFloat64,
	"128-bit signed integer":   ast.BuiltinSigned128,
	"128-bit unsigned integer": ast.BuiltinUnsigned128,
	"128-bit floating point":   ast.BuiltinFloat128,
}

func decodeNode(msg json.RawMessage) (ast.Node, error) {
	var env nodeEnvelope
	if err := json.Unmarshal(msg, &env); err != nil {
		return nil, fmt.Errorf("decode node envelope: %w", err)
	}
	header, err := decodeHeader(env)
	if err != nil {
		return nil, err
	}

	switch env.Descriptor {
	case "builtin":
		var body struct {
			Class string `json:"class"`
		}
		if err := json.Unmarshal(msg, &body); err != nil {
			return nil, err
		}
		class, ok := builtinClasses[body.Class]
		if !ok {
			return nil, fmt.Errorf("unknown builtin class %q", body.Class)
		}
		return &ast.Builtin{NodeHeader: header, Class: class}, nil

	case "type_name":
		var body struct {
			TypeName                  string `json:"type_name"`
			ReferencedFileIndex       *int   `json:"referenced_file_index"`
			ReferencedStabsTypeNumber *int   `json:"referenced_stabs_type_number"`
		}
		if err := json.Unmarshal(msg, &body); err != nil {
			return nil, err
		}
		n := &ast.TypeName{
			NodeHeader:                header,
			TypeNameString:            body.TypeName,
			ReferencedFileIndex:       -1,
			ReferencedStabsTypeNumber: -1,
		}
		if body.ReferencedFileIndex != nil {
			n.ReferencedFileIndex = *body.ReferencedFileIndex
		}
		if body.ReferencedStabsTypeNumber != nil {
			n.ReferencedStabsTypeNumber = *body.ReferencedStabsTypeNumber
		}
		return n, nil

	case "pointer", "reference":
		var body struct {
			ValueType json.RawMessage `json:"value_type"`
		}
		if err := json.Unmarshal(msg, &body); err != nil {
			return nil, err
		}
		value, err := decodeNode(body.ValueType)
		if err != nil {
			return nil, fmt.Errorf("%s operand: %w", env.Descriptor, err)
		}
		if env.Descriptor == "pointer" {
			return &ast.Pointer{NodeHeader: header, Value: value}, nil
		}
		return &ast.Reference{NodeHeader: header, Value: value}, nil

	case "array":
		var body struct {
			ElementType  json.RawMessage `json:"element_type"`
			ElementCount int             `json:"element_count"`
		}
		if err := json.Unmarshal(msg, &body); err != nil {
			return nil, err
		}
		element, err := decodeNode(body.ElementType)
		if err != nil {
			return nil, fmt.Errorf("array element: %w", err)
		}
		return &ast.Array{NodeHeader: header, Element: element, ElementCount: body.ElementCount}, nil

	case "bitfield":
		var body struct {
			UnderlyingType json.RawMessage `json:"underlying_type"`
		}
		if err := json.Unmarshal(msg, &body); err != nil {
			return nil, err
		}
		underlying, err := decodeNode(body.UnderlyingType)
		if err != nil {
			return nil, fmt.Errorf("bitfield storage type: %w", err)
		}
		return &ast.BitField{NodeHeader: header, Underlying: underlying}, nil

	case "enum":
		var body struct {
			Constants []struct {
				Name  string `json:"name"`
				Value int32  `json:"value"`
			} `json:"constants"`
		}
		if err := json.Unmarshal(msg, &body); err != nil {
			return nil, err
		}
		n := &ast.InlineEnum{NodeHeader: header}
		for _, c := range body.Constants {
			n.Constants = append(n.Constants, ast.EnumConstant{Name: c.Name, Value: c.Value})
		}
		return n, nil

	case "struct_or_union":
		return decodeStructOrUnion(msg, header)

	case "function_type":
		return decodeFunctionType(msg, header)

	case "function":
		return decodeFunctionDefinition(msg, header)

	case "variable":
		return decodeVariable(msg, header)

	case "source_file":
		return decodeSourceFile(msg)

	default:
		return nil, fmt.Errorf("unknown node descriptor %q", env.Descriptor)
	}
}

func decodeField(msg json.RawMessage) (ast.Field, error) {
	var body struct {
		Name        string          `json:"name"`
		OffsetBytes int32           `json:"offset_bytes"`
		Type        json.RawMessage `json:"type"`
	}
	if err := json.Unmarshal(msg, &body); err != nil {
		return ast.Field{}, err
	}
	node, err := decodeNode(body.Type)
	if err != nil {
		return ast.Field{}, fmt.Errorf("field %s: %w", body.Name, err)
	}
	return ast.Field{Name: body.Name, Type: node, OffsetBytes: body.OffsetBytes}, nil
}

func decodeStructOrUnion(msg json.RawMessage, header ast.NodeHeader) (ast.Node, error) {
	var body struct {
		IsUnion     bool              `json:"is_union"`
		SizeBits    int32             `json:"size_bits"`
		BaseClasses []json.RawMessage `json:"base_classes"`
		Fields      []json.RawMessage `json:"fields"`
	}
	if err := json.Unmarshal(msg, &body); err != nil {
		return nil, err
	}
	n := &ast.InlineStructOrUnion{
		NodeHeader: header,
		IsUnion:    body.IsUnion,
		SizeBits:   body.SizeBits,
	}
	for _, raw := range body.BaseClasses {
		field, err := decodeField(raw)
		if err != nil {
			return nil, fmt.Errorf("base class of %s: %w", header.Name, err)
		}
		n.BaseClasses = append(n.BaseClasses, field)
	}
	for _, raw := range body.Fields {
		field, err := decodeField(raw)
		if err != nil {
			return nil, fmt.Errorf("member of %s: %w", header.Name, err)
		}
		n.Fields = append(n.Fields, field)
	}
	return n, nil
}

func decodeFunctionType(msg json.RawMessage, header ast.NodeHeader) (*ast.FunctionType, error) {
	var body struct {
		ReturnType json.RawMessage   `json:"return_type"`
		Parameters []json.RawMessage `json:"parameters"`
	}
	if err := json.Unmarshal(msg, &body); err != nil {
		return nil, err
	}
	n := &ast.FunctionType{NodeHeader: header}
	if len(body.ReturnType) > 0 && string(body.ReturnType) != "null" {
		ret, err := decodeNode(body.ReturnType)
		if err != nil {
			return nil, fmt.Errorf("return type: %w", err)
		}
		n.ReturnType = ret
	}
	for i, raw := range body.Parameters {
		node, err := decodeNode(raw)
		if err != nil {
			return nil, fmt.Errorf("parameter %d: %w", i, err)
		}
		variable, ok := node.(*ast.Variable)
		if !ok {
			return nil, fmt.Errorf("parameter %d: unexpected %T", i, node)
		}
		n.Parameters = append(n.Parameters, variable)
	}
	return n, nil
}

func decodeVariable(msg json.RawMessage, header ast.NodeHeader) (*ast.Variable, error) {
	var body struct {
		Type    json.RawMessage `json:"type"`
		Storage struct {
			Location           string `json:"location"`
			GlobalAddress      *int64 `json:"global_address"`
			Register           int    `json:"register"`
			StackPointerOffset int32  `json:"stack_pointer_offset"`
			IsByReference      bool   `json:"is_by_reference"`
		} `json:"storage"`
	}
	if err := json.Unmarshal(msg, &body); err != nil {
		return nil, err
	}
	node, err := decodeNode(body.Type)
	if err != nil {
		return nil, fmt.Errorf("variable %s: %w", header.Name, err)
	}
	storage := ast.VariableStorage{
		GlobalAddress:      ast.NoAddress,
		Register:           body.Storage.Register,
		StackPointerOffset: body.Storage.StackPointerOffset,
		IsByReference:      body.Storage.IsByReference,
	}
	switch body.Storage.Location {
	case "", "global":
		storage.Location = ast.StorageLocationGlobal
		if body.Storage.GlobalAddress != nil {
			storage.GlobalAddress = *body.Storage.GlobalAddress
		}
	case "register":
		storage.Location = ast.StorageLocationRegister
	case "stack":
		storage.Location = ast.StorageLocationStack
	default:
		return nil, fmt.Errorf("variable %s: unknown storage location %q", header.Name, body.Storage.Location)
	}
	return &ast.Variable{NodeHeader: header, Type: node, Storage: storage}, nil
}

func decodeFunctionDefinition(msg json.RawMessage, header ast.NodeHeader) (*ast.FunctionDefinition, error) {
	var body struct {
		AddressRange struct {
			Low  *int64 `json:"low"`
			High *int64 `json:"high"`
		} `json:"address_range"`
		RelativePath string            `json:"relative_path"`
		Type         json.RawMessage   `json:"type"`
		Locals       []json.RawMessage `json:"locals"`
		LineNumbers  []struct {
			Address    int64 `json:"address"`
			LineNumber int32 `json:"line_number"`
		} `json:"line_numbers"`
		SubSourceFiles []struct {
			Address      int64  `json:"address"`
			RelativePath string `json:"relative_path"`
		} `json:"sub_source_files"`
	}
	if err := json.Unmarshal(msg, &body); err != nil {
		return nil, err
	}

	n := &ast.FunctionDefinition{
		NodeHeader:   header,
		AddressRange: ast.AddressRange{Low: ast.NoAddress, High: ast.NoAddress},
		RelativePath: body.RelativePath,
	}
	if body.AddressRange.Low != nil {
		n.AddressRange.Low = *body.AddressRange.Low
	}
	if body.AddressRange.High != nil {
		n.AddressRange.High = *body.AddressRange.High
	}
	if len(body.Type) > 0 && string(body.Type) != "null" {
		t, err := decodeNode(body.Type)
		if err != nil {
			return nil, fmt.Errorf("function %s signature: %w", header.Name, err)
		}
		n.Type = t
	}
	for i, raw := range body.Locals {
		local, err := decodeNode(raw)
		if err != nil {
			return nil, fmt.Errorf("function %s local %d: %w", header.Name, i, err)
		}
		n.Locals = append(n.Locals, local)
	}
	for _, pair := range body.LineNumbers {
		n.LineNumbers = append(n.LineNumbers, ast.LineNumberPair{
			Address:    pair.Address,
			LineNumber: pair.LineNumber,
		})
	}
	for _, sub := range body.SubSourceFiles {
		n.SubSourceFiles = append(n.SubSourceFiles, ast.SubSourceFile{
			Address:      sub.Address,
			RelativePath: sub.RelativePath,
		})
	}
	return n, nil
}

func decodeSourceFile(msg json.RawMessage) (*ast.SourceFile, error) {
	var env nodeEnvelope
	if err := json.Unmarshal(msg, &env); err != nil {
		return nil, err
	}
	header, err := decodeHeader(env)
	if err != nil {
		return nil, err
	}

	var body struct {
		Path         string            `json:"path"`
		RelativePath string            `json:"relative_path"`
		TextAddress  int64             `json:"text_address"`
		Functions    []json.RawMessage `json:"functions"`
		Globals      []json.RawMessage `json:"globals"`
		TypeIndex    map[string]int32  `json:"stabs_type_number_to_deduplicated_type_index"`
	}
	if err := json.Unmarshal(msg, &body); err != nil {
		return nil, err
	}

	file := &ast.SourceFile{
		NodeHeader:                             header,
		Path:                                   body.Path,
		RelativePath:                           body.RelativePath,
		TextAddress:                            body.TextAddress,
		StabsTypeNumberToDeduplicatedTypeIndex: make(map[int32]int32, len(body.TypeIndex)),
	}
	for key, index := range body.TypeIndex {
		number, err := strconv.ParseInt(key, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("file %s: bad stabs type number %q", body.Path, key)
		}
		file.StabsTypeNumberToDeduplicatedTypeIndex[int32(number)] = index
	}
	for i, raw := range body.Functions {
		node, err := decodeNode(raw)
		if err != nil {
			return nil, fmt.Errorf("file %s function %d: %w", body.Path, i, err)
		}
		file.Functions = append(file.Functions, node)
	}
	for i, raw := range body.Globals {
		node, err := decodeNode(raw)
		if err != nil {
			return nil, fmt.Errorf("file %s global %d: %w", body.Path, i, err)
		}
		file.Globals = append(file.Globals, node)
	}
	return file, nil
}
