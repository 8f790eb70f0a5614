package lower

import "lispc/types"

var (
	symQuote          = types.Intern("quote")
	symFunction       = types.Intern("function")
	symLambda         = types.Intern("lambda")
	symNamedLambda    = types.Intern("%named-lambda")
	symSetq           = types.Intern("setq")
	symIf             = types.Intern("if")
	symProgn          = types.Intern("progn")
	symLet            = types.Intern("let")
	symFlet           = types.Intern("flet")
	symLabels         = types.Intern("labels")
	symBlock          = types.Intern("block")
	symReturnFrom     = types.Intern("return-from")
	symCatch          = types.Intern("catch")
	symThrow          = types.Intern("throw")
	symUnwindProtect  = types.Intern("unwind-protect")
	symFuncall        = types.Intern("funcall")
	symApply          = types.Intern("apply")
	symProg1          = types.Intern("prog1")
	symMultipleValues = types.Intern("multiple-value-call")
	symLoop           = types.Intern("%loop")
	symGlobalRef      = types.Intern("%global-ref")
	symGlobalSet      = types.Intern("%global-set")
	symEql            = types.Intern("%eql")
	symRest           = types.Intern("&rest")
	symOptional       = types.Intern("&optional")
	symBody           = types.Intern("&body")
)

func list(parts ...types.Value) types.List {
	return types.NewList(parts...)
}

func prepend(head types.Value, rest []types.Value) types.List {
	return types.NewList(append([]types.Value{head}, rest...)...)
}

func quote(v types.Value) types.List {
	return list(symQuote, v)
}

func progn(body []types.Value) types.Value {
	switch len(body) {
	case 0:
		return types.NilSym
	case 1:
		return body[0]
	}
	return prepend(symProgn, body)
}

// lambdaForm builds (function (lambda ll body...)).
func lambdaForm(ll types.Value, body ...types.Value) types.List {
	return list(symFunction, prepend(symLambda, append([]types.Value{ll}, body...)))
}
