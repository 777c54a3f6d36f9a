package execution

import (
	"context"
	"testing"

	"github.com/mr-tron/base58"

	"suiflash-router/internal/config"
	"suiflash-router/internal/protocol"
)

func testSuiConfig() config.SuiConfig {
	return config.SuiConfig{
		RPCURL:         "https://fullnode.mainnet.sui.io:443",
		PackageID:      "0xflashrouter",
		ConfigObjectID: "0xconfig",
		SenderAddress:  "0xsender",
	}
}

func testPlan() protocol.ExecutionPlan {
	return protocol.ExecutionPlan{
		Protocol:      protocol.Bucket,
		Amount:        1_000_000,
		ProtocolFee:   500,
		ServiceFee:    3_000,
		TotalCost:     1_003_500,
		UserOperation: "arbitrage",
	}
}

func TestExecuteReturnsValidDigest(t *testing.T) {
	executor := NewSuiExecutor(testSuiConfig(), nil)

	digest, err := executor.Execute(context.Background(), testPlan())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	raw, err := base58.Decode(digest)
	if err != nil {
		t.Fatalf("digest is not valid base58: %v", err)
	}
	if len(raw) != 32 {
		t.Errorf("digest length mismatch: got %d want 32", len(raw))
	}
}

func TestExecuteDigestDeterministic(t *testing.T) {
	executor := NewSuiExecutor(testSuiConfig(), nil)

	first, err := executor.Execute(context.Background(), testPlan())
	if err != nil {
		t.Fatalf("first execute: %v", err)
	}
	second, err := executor.Execute(context.Background(), testPlan())
	if err != nil {
		t.Fatalf("second execute: %v", err)
	}

	if first != second {
		t.Errorf("same plan must produce the same digest: %s vs %s", first, second)
	}
}

func TestExecuteDigestSensitiveToPlan(t *testing.T) {
	executor := NewSuiExecutor(testSuiConfig(), nil)

	base, err := executor.Execute(context.Background(), testPlan())
	if err != nil {
		t.Fatalf("execute base plan: %v", err)
	}

	changed := testPlan()
	changed.Amount = 2_000_000
	other, err := executor.Execute(context.Background(), changed)
	if err != nil {
		t.Fatalf("execute changed plan: %v", err)
	}

	if base == other {
		t.Error("plans with different amounts must not share a digest")
	}
}

func TestExecuteUsesCallbackRecipient(t *testing.T) {
	executor := NewSuiExecutor(testSuiConfig(), nil)

	base, err := executor.Execute(context.Background(), testPlan())
	if err != nil {
		t.Fatalf("execute base plan: %v", err)
	}

	recipient := "0xother"
	withRecipient := testPlan()
	withRecipient.CallbackRecipient = &recipient

	other, err := executor.Execute(context.Background(), withRecipient)
	if err != nil {
		t.Fatalf("execute with recipient: %v", err)
	}
	if base == other {
		t.Error("callback recipient must be reflected in the transaction bytes")
	}
}

func TestExecuteMissingPackageID(t *testing.T) {
	cfg := testSuiConfig()
	cfg.PackageID = ""
	executor := NewSuiExecutor(cfg, nil)

	if _, err := executor.Execute(context.Background(), testPlan()); err == nil {
		t.Fatal("expected error for missing package id")
	}
}

func TestExecuteInvalidProtocol(t *testing.T) {
	executor := NewSuiExecutor(testSuiConfig(), nil)

	plan := testPlan()
	plan.Protocol = protocol.Protocol(42)
	if _, err := executor.Execute(context.Background(), plan); err == nil {
		t.Fatal("expected error for invalid protocol discriminant")
	}
}

func TestVerify(t *testing.T) {
	executor := NewSuiExecutor(testSuiConfig(), nil)

	digest, err := executor.Execute(context.Background(), testPlan())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	ok, err := executor.Verify(context.Background(), digest)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Error("expected digest to verify")
	}

	if _, err := executor.Verify(context.Background(), "not-base58-0OIl"); err == nil {
		t.Error("expected error for malformed digest")
	}
	if _, err := executor.Verify(context.Background(), base58.Encode([]byte("short"))); err == nil {
		t.Error("expected error for wrong digest length")
	}
}

func TestExecuteCanceledContext(t *testing.T) {
	executor := NewSuiExecutor(testSuiConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := executor.Execute(ctx, testPlan()); err == nil {
		t.Fatal("expected error for canceled context")
	}
}
