package ir

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lispc/reader"
	"lispc/target"
	"lispc/types"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		class Class
		ok    bool
	}{
		{"name", `(Name x)`, ExprClass, true},
		{"name as stmt", `(Name x)`, StmtClass, false},
		{"call", `(Call (Name f) ((Const 1) (Starred (Name r))))`, ExprClass, true},
		{"arity", `(Call (Name f))`, ExprClass, false},
		{"bare return", `(Return nil)`, StmtClass, true},
		{"return stmt value", `(Return (Pass))`, StmtClass, false},
		{"keyword ident", `(Name :x)`, ExprClass, false},
		{"params", `(FunctionDef f (Params (a b) ((Const 1)) r) ((Return (Name a))))`, StmtClass, true},
		{"too many defaults", `(Lambda (Params () ((Const 1)) nil) (Const 1))`, ExprClass, false},
		{"duplicate parameter", `(Lambda (Params (a_b a_b) () nil) (Const 1))`, ExprClass, false},
		{"rest shadows parameter", `(Lambda (Params (a) () a) (Const 1))`, ExprClass, false},
		{"try", `(Try ((Pass)) ((ExceptHandler nil e ((Raise (Name e))))) ())`, StmtClass, true},
		{"bad handler", `(Try ((Pass)) ((Pass)) ())`, StmtClass, false},
		{"compare", `(Compare is-not (Name x) (Const nil))`, ExprClass, true},
		{"bad op", `(Compare < (Name x) (Const 1))`, ExprClass, false},
		{"not a node", `(Frob)`, ExprClass, false},
		{"const anything", `(Const (a (b) "c"))`, ExprClass, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(reader.MustRead(tt.src), tt.class)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestConstructorsProduceValidNodes(t *testing.T) {
	fn := FunctionDef("__f_f", Params([]string{"x"}, nil, "r"),
		Nonlocal("y"),
		Assign(Name("y"), Call(RT("symbol_value"), Const(types.Intern("z")))),
		If(Truth(Name("x")), []types.Value{Return(Name("x"))}, nil),
		Try(
			[]types.Value{ExprStmt(Call(Name("g"), Starred(Name("r"))))},
			[]types.Value{ExceptHandler(RT("Throw"), "__t1", Raise(Name("__t1")))},
			[]types.Value{Pass()},
		),
		While(Const(types.TSym), Break()),
		Return(IfExp(Name("x"), Lambda(Params(nil, nil, ""), Tuple()), Nil())),
	)
	require.NoError(t, Validate(fn, StmtClass))
	require.NoError(t, Validate(Module(fn, Global("a")), AuxClass))
}

func TestASTRoundTrip(t *testing.T) {
	mod := Module(
		FunctionDef("__f_g", Params([]string{"a", "b"}, []types.Value{Nil()}, ""),
			Global("__f_h"),
			Return(Compare("is", Name("a"), Name("b"))),
		),
		ExprStmt(CallRT("trace_enter", Const(types.NewStr("g")), Tuple(Const(types.NewStr("rt"))))),
	)
	ast, err := ToAST(mod)
	require.NoError(t, err)
	back := FromAST(ast)
	if diff := cmp.Diff(mod.String(), back.String()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	want := `def __f_g(a, b=None):
    global __f_h
    return a is b
rt.trace_enter("g", ("rt",))`
	assert.Equal(t, want, target.Unparse(ast))
}

func TestToASTRejectsInvalid(t *testing.T) {
	_, err := ToAST(reader.MustRead(`(Assign ((Name x)))`))
	require.Error(t, err)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestBoundFree(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		bound    []string
		free     []string
		declared []string
	}{
		{
			"params and locals",
			`(FunctionDef f (Params (a) () nil) ((Assign ((Name b)) (Call (Name g) ((Name a) (Name c)))) (Return (Name b))))`,
			[]string{"a", "b"}, []string{"c", "g"}, []string{},
		},
		{
			"nonlocal moves name out of bound",
			`(FunctionDef f (Params () () nil) ((Nonlocal (x)) (Assign ((Name x)) (Const 1))))`,
			[]string{}, []string{}, []string{"x"},
		},
		{
			"nested function contributes externals",
			`(FunctionDef f (Params (a) () nil) ((FunctionDef g (Params (b) ((Name d)) nil) ((Nonlocal (a)) (Return (Call (Name h) ((Name b) (Name a)))))) (Return (Name g))))`,
			[]string{"a", "g"}, []string{"d", "h"}, []string{},
		},
		{
			"lambda",
			`(Lambda (Params (x) () r) (Call (Name x) ((Name r) (Name y))))`,
			[]string{"r", "x"}, []string{"y"}, []string{},
		},
		{
			"handler binds",
			`(Try ((Pass)) ((ExceptHandler (Attribute (Name rt) Throw) e ((Return (Name e))))) ())`,
			[]string{"e"}, []string{"rt"}, []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := BoundFree(reader.MustRead(tt.src))
			assert.Equal(t, tt.bound, s.Bound.Sorted(), "bound")
			assert.Equal(t, tt.free, s.Free.Sorted(), "free")
			assert.Equal(t, tt.declared, s.DeclaredOuter.Sorted(), "declared")
		})
	}
}

func TestExternals(t *testing.T) {
	fn := reader.MustRead(`(FunctionDef f (Params () () nil) ((Global (__f_k)) (FunctionDef __f_k (Params () () nil) ((Return (Name x)))) (Return (Name y))))`)
	assert.Equal(t, []string{"__f_k", "x", "y"}, Externals(fn).Sorted())
}

func TestMangle(t *testing.T) {
	tests := []struct{ in, want string }{
		{"foo", "foo"},
		{"foo-bar", "foo_bar"},
		{"foo_bar", "Lfoo_US_bar_"},
		{"foo--bar", "Lfoo_DASH__DASH_bar_"},
		{"foo-", "Lfoo_DASH__"},
		{"*print*", "L_STAR_print_STAR__"},
		{"1+", "L1_PLUS__"},
		{"x1", "x1"},
		{"-x", "L_DASH_x_"},
		{"rt", "Lrt_"},
		{"lambda", "Llambda_"},
		{"null?", "Lnull_P__"},
		{"λ", "L_U3BB__"},
		{"", "L_"},
	}
	for _, tt := range tests {
		got := Mangle(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.False(t, strings.HasPrefix(got, "__"), got)
	}
}

func TestMangleDistinct(t *testing.T) {
	names := []string{
		"a-b", "a_b", "a--b", "a__b", "a-_b", "a_-b", "a-b-", "a_b_",
		"-a-b", "_a_b", "L", "La", "L-a", "La_", "a", "a_", "a-",
		"rt", "Lrt", "rt_", "lambda", "lambda_", "1", "L1", "_1",
		"US", "_US_", "a_US_b", "a:b", "a_COLON_b",
	}
	seen := map[string]string{}
	for _, name := range names {
		id := Mangle(name)
		if prev, ok := seen[id]; ok {
			t.Errorf("%q and %q both mangle to %q", prev, name, id)
		}
		seen[id] = name
	}
}

func TestFunctionIdent(t *testing.T) {
	assert.Equal(t, "__f_car", FunctionIdent(types.Intern("car")))
	assert.Equal(t, "__f_L_SETF_car_", FunctionIdent(types.L("setf", "car")))
	assert.Equal(t, "__f_Lcl_IN_list_", FunctionIdent(types.InternIn("cl", "list")))
	assert.True(t, IsGlobalFunction("__f_car"))
	assert.False(t, IsGlobalFunction("__lf_car1"))

	names := []types.Value{
		types.Intern("setf-car"),
		types.Intern("setf__car"),
		types.InternIn("setf", "car"),
		types.L("setf", "car"),
		types.L("setf", types.InternIn("setf", "car")),
		types.Intern("cl-list"),
		types.Intern("cl__list"),
		types.InternIn("cl", "list"),
		types.InternIn("cl-", "list"),
		types.InternIn("cl", "-list"),
		types.Intern("a-b"),
		types.Intern("a_b"),
	}
	seen := map[string]types.Value{}
	for _, name := range names {
		id := FunctionIdent(name)
		if prev, ok := seen[id]; ok {
			t.Errorf("%s and %s both map to %q", prev, name, id)
		}
		seen[id] = name
	}
}

func TestTree(t *testing.T) {
	out := Tree(Return(Call(Name("f"), Const(types.NewInt(1)))))
	for _, s := range []string{"Return", "Call", "Name", "id", "f", "Const", "1"} {
		assert.Contains(t, out, s)
	}
}
