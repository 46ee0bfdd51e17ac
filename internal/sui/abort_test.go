package sui

import "testing"

func TestParseAbort(t *testing.T) {
	status := `MoveAbort(MoveLocation { module: ModuleId { address: 0x9f3a, name: Identifier("pumpsui_core") }, ` +
		`function: 4, instruction: 22, function_name: Some("sell") }, 3) in command 2`

	abort := parseAbort(status)
	if abort == nil {
		t.Fatal("expected abort")
	}
	if abort.Module != "pumpsui_core" || abort.Function != "sell" || abort.Code != 3 {
		t.Errorf("abort = %+v", abort)
	}
	if !abort.Known {
		t.Error("code 3 of pumpsui_core should be mapped")
	}
}

func TestParseAbortWithoutFunctionName(t *testing.T) {
	status := `MoveAbort(MoveLocation { module: ModuleId { address: 0x1, name: Identifier("lending_core") }, ` +
		`function: 0, instruction: 1, function_name: None }, 4242) in command 0`

	abort := parseAbort(status)
	if abort == nil {
		t.Fatal("expected abort")
	}
	if abort.Code != 4242 || abort.Known {
		t.Errorf("abort = %+v, want unknown code 4242", abort)
	}
}

func TestParseAbortIgnoresOtherFailures(t *testing.T) {
	if abort := parseAbort("InsufficientGas"); abort != nil {
		t.Errorf("expected nil, got %+v", abort)
	}
}
