package serialize

import "testing"

func TestCompileExprBareExpression(t *testing.T) {
	got, err := CompileExpr("1 + 2")
	if err != nil {
		t.Fatalf("CompileExpr: %v", err)
	}
	if got.Form != ExprFormExpression {
		t.Fatalf("expected ExprFormExpression, got %v", got.Form)
	}
	want := "function() { return (1 + 2); }"
	if got.Source != want {
		t.Fatalf("got %q, want %q", got.Source, want)
	}
}

func TestCompileExprArrowExpression(t *testing.T) {
	got, err := CompileExpr("(page, eventName) => page.dispatch(eventName)")
	if err != nil {
		t.Fatalf("CompileExpr: %v", err)
	}
	if got.Form != ExprFormExpression {
		t.Fatalf("expected ExprFormExpression, got %v", got.Form)
	}
}

func TestCompileExprMethodShorthand(t *testing.T) {
	raw := "tag(x) { return x + 1; }"
	got, err := CompileExpr(raw)
	if err != nil {
		t.Fatalf("CompileExpr: %v", err)
	}
	if got.Form != ExprFormMethodShorthand {
		t.Fatalf("expected ExprFormMethodShorthand, got %v", got.Form)
	}
	want := "function tag(x) { return x + 1; }"
	if got.Source != want {
		t.Fatalf("got %q, want %q", got.Source, want)
	}
}

func TestCompileExprAsyncMethodShorthand(t *testing.T) {
	raw := "async tag(x) { return await x; }"
	got, err := CompileExpr(raw)
	if err != nil {
		t.Fatalf("CompileExpr: %v", err)
	}
	if got.Form != ExprFormMethodShorthand {
		t.Fatalf("expected ExprFormMethodShorthand, got %v", got.Form)
	}
	want := "async function tag(x) { return await x; }"
	if got.Source != want {
		t.Fatalf("got %q, want %q", got.Source, want)
	}
}

func TestCompileExprAsyncArrowIsExpressionNotShorthand(t *testing.T) {
	raw := "async (page, eventName) => { await page.evaluate((n) => dispatchEvent(new Event(n)), eventName); }"
	got, err := CompileExpr(raw)
	if err != nil {
		t.Fatalf("CompileExpr: %v", err)
	}
	if got.Form != ExprFormExpression {
		t.Fatalf("expected ExprFormExpression, got %v", got.Form)
	}
}

func TestCompileExprCallExpressionIsNotShorthand(t *testing.T) {
	got, err := CompileExpr("tag(x).then(y => y)")
	if err != nil {
		t.Fatalf("CompileExpr: %v", err)
	}
	if got.Form != ExprFormExpression {
		t.Fatalf("expected ExprFormExpression, got %v", got.Form)
	}
}

func TestCompileExprFunctionExpressionIsNotShorthand(t *testing.T) {
	got, err := CompileExpr("function(x) { return x + 1; }")
	if err != nil {
		t.Fatalf("CompileExpr: %v", err)
	}
	if got.Form != ExprFormExpression {
		t.Fatalf("expected ExprFormExpression, got %v", got.Form)
	}
}

func TestCompileExprEmptySourceFails(t *testing.T) {
	_, err := CompileExpr("   ")
	if err != ErrNotWellSerializable {
		t.Fatalf("expected ErrNotWellSerializable, got %v", err)
	}
}

func TestCompileExprUnbalancedFails(t *testing.T) {
	_, err := CompileExpr("(a, b => a + b")
	if err != ErrNotWellSerializable {
		t.Fatalf("expected ErrNotWellSerializable, got %v", err)
	}
}

func TestIsBalancedIgnoresDelimitersInStrings(t *testing.T) {
	if !isBalanced(`return ("(not a paren)")`) {
		t.Fatal("expected string contents to be ignored by balance check")
	}
}
