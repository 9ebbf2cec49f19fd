package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/wippyai/region-codec/codec"
	"go.bytecodealliance.org/wit"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the WIT description of the sample record",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := codec.New[Entry]()
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), renderSchema(c.Schema()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}

// renderSchema prints every named record reachable from t as a WIT-like
// definition. Anonymous types are written inline.
func renderSchema(t wit.Type) string {
	r := schemaRenderer{done: make(map[*wit.TypeDef]bool)}
	r.typeStr(t)
	var b strings.Builder
	for i, def := range r.defs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(def)
	}
	return b.String()
}

type schemaRenderer struct {
	done map[*wit.TypeDef]bool
	defs []string
}

func (r *schemaRenderer) define(td *wit.TypeDef, rec *wit.Record) {
	r.done[td] = true
	idx := len(r.defs)
	r.defs = append(r.defs, "")
	var b strings.Builder
	fmt.Fprintf(&b, "record %s {\n", *td.Name)
	for _, f := range rec.Fields {
		fmt.Fprintf(&b, "    %s: %s,\n", f.Name, r.typeStr(f.Type))
	}
	b.WriteString("}\n")
	r.defs[idx] = b.String()
}

func (r *schemaRenderer) typeStr(t wit.Type) string {
	switch v := t.(type) {
	case wit.Bool:
		return "bool"
	case wit.U8:
		return "u8"
	case wit.S8:
		return "s8"
	case wit.U16:
		return "u16"
	case wit.S16:
		return "s16"
	case wit.U32:
		return "u32"
	case wit.S32:
		return "s32"
	case wit.U64:
		return "u64"
	case wit.S64:
		return "s64"
	case wit.F32:
		return "f32"
	case wit.F64:
		return "f64"
	case wit.String:
		return "string"
	case *wit.TypeDef:
		return r.typeDefStr(v)
	default:
		return fmt.Sprintf("%T", t)
	}
}

func (r *schemaRenderer) typeDefStr(td *wit.TypeDef) string {
	if rec, ok := td.Kind.(*wit.Record); ok && td.Name != nil {
		if !r.done[td] {
			r.define(td, rec)
		}
		return *td.Name
	}
	switch k := td.Kind.(type) {
	case *wit.List:
		return "list<" + r.typeStr(k.Type) + ">"
	case *wit.Option:
		return "option<" + r.typeStr(k.Type) + ">"
	case *wit.Tuple:
		parts := make([]string, len(k.Types))
		for i, e := range k.Types {
			parts[i] = r.typeStr(e)
		}
		return "tuple<" + strings.Join(parts, ", ") + ">"
	case *wit.Record:
		parts := make([]string, len(k.Fields))
		for i, f := range k.Fields {
			parts[i] = f.Name + ": " + r.typeStr(f.Type)
		}
		return "record { " + strings.Join(parts, ", ") + " }"
	case *wit.Variant:
		parts := make([]string, len(k.Cases))
		for i, c := range k.Cases {
			parts[i] = c.Name
			if c.Type != nil {
				parts[i] += "(" + r.typeStr(c.Type) + ")"
			}
		}
		return "variant { " + strings.Join(parts, ", ") + " }"
	}
	if td.Name != nil {
		return *td.Name
	}
	return fmt.Sprintf("%T", td.Kind)
}
