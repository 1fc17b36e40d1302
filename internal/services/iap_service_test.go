package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/awa/go-iap/appstore"
	"google.golang.org/api/androidpublisher/v3"

	"github.com/ituby/GenieAI-sub000/internal/models"
	"github.com/ituby/GenieAI-sub000/internal/repositories"
)

type fakeApple struct {
	response appstore.IAPResponse
	err      error
}

func (f *fakeApple) Verify(ctx context.Context, req appstore.IAPRequest, result interface{}) error {
	if f.err != nil {
		return f.err
	}
	*(result.(*appstore.IAPResponse)) = f.response
	return nil
}

type fakeGoogle struct {
	product      *androidpublisher.ProductPurchase
	subscription *androidpublisher.SubscriptionPurchase
	err          error
}

func (f *fakeGoogle) VerifyProduct(ctx context.Context, packageName, productID, token string) (*androidpublisher.ProductPurchase, error) {
	return f.product, f.err
}

func (f *fakeGoogle) VerifySubscription(ctx context.Context, packageName, subscriptionID, token string) (*androidpublisher.SubscriptionPurchase, error) {
	return f.subscription, f.err
}

func testIAPConfig() IAPConfig {
	return IAPConfig{
		AppleSharedSecret:     "secret",
		AppleBundleID:         "fit.genie.app",
		GooglePackageName:     "fit.genie.app",
		TokenProducts:         map[string]int{"tok.50": 50},
		SubscriptionProductID: "sub.monthly",
	}
}

func TestVerifyAppleMatchesTransaction(t *testing.T) {
	apple := &fakeApple{response: appstore.IAPResponse{
		Status: 0,
		Receipt: appstore.Receipt{
			BundleID: "fit.genie.app",
			InApp: []appstore.InApp{
				{ProductID: "tok.50", TransactionID: "txn-1"},
			},
		},
	}}
	s := &IAPService{Apple: apple, Config: testIAPConfig()}

	valid, err := s.verifyApple(context.Background(), models.ValidateReceiptRequest{
		Platform:      models.PlatformIOS,
		ProductID:     "tok.50",
		TransactionID: "txn-1",
		Receipt:       "base64-receipt",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !valid {
		t.Error("matching transaction should validate")
	}
}

func TestVerifyAppleRejectsWrongBundle(t *testing.T) {
	apple := &fakeApple{response: appstore.IAPResponse{
		Status: 0,
		Receipt: appstore.Receipt{
			BundleID: "com.other.app",
			InApp: []appstore.InApp{
				{ProductID: "tok.50", TransactionID: "txn-1"},
			},
		},
	}}
	s := &IAPService{Apple: apple, Config: testIAPConfig()}

	valid, err := s.verifyApple(context.Background(), models.ValidateReceiptRequest{
		ProductID:     "tok.50",
		TransactionID: "txn-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if valid {
		t.Error("foreign bundle id must not validate")
	}
}

func TestVerifyAppleRejectsMissingTransaction(t *testing.T) {
	apple := &fakeApple{response: appstore.IAPResponse{
		Status:  0,
		Receipt: appstore.Receipt{BundleID: "fit.genie.app"},
	}}
	s := &IAPService{Apple: apple, Config: testIAPConfig()}

	valid, err := s.verifyApple(context.Background(), models.ValidateReceiptRequest{
		ProductID:     "tok.50",
		TransactionID: "txn-unseen",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if valid {
		t.Error("transaction absent from the receipt must not validate")
	}
}

func TestVerifyGoogleProductStates(t *testing.T) {
	s := &IAPService{
		Google: &fakeGoogle{product: &androidpublisher.ProductPurchase{PurchaseState: 0}},
		Config: testIAPConfig(),
	}
	valid, err := s.verifyGoogle(context.Background(), models.ValidateReceiptRequest{
		ProductID: "tok.50", Receipt: "play-token",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !valid {
		t.Error("purchased state should validate")
	}

	s.Google = &fakeGoogle{product: &androidpublisher.ProductPurchase{PurchaseState: 2}}
	valid, err = s.verifyGoogle(context.Background(), models.ValidateReceiptRequest{
		ProductID: "tok.50", Receipt: "play-token",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if valid {
		t.Error("pending state must not validate")
	}
}

func TestVerifyGoogleSubscriptionExpiry(t *testing.T) {
	live := &androidpublisher.SubscriptionPurchase{
		ExpiryTimeMillis: time.Now().Add(24 * time.Hour).UnixMilli(),
	}
	s := &IAPService{Google: &fakeGoogle{subscription: live}, Config: testIAPConfig()}

	valid, err := s.verifyGoogle(context.Background(), models.ValidateReceiptRequest{
		ProductID: "sub.monthly", Receipt: "play-token",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !valid {
		t.Error("unexpired subscription should validate")
	}

	expired := &androidpublisher.SubscriptionPurchase{
		ExpiryTimeMillis: time.Now().Add(-time.Hour).UnixMilli(),
	}
	s.Google = &fakeGoogle{subscription: expired}
	valid, err = s.verifyGoogle(context.Background(), models.ValidateReceiptRequest{
		ProductID: "sub.monthly", Receipt: "play-token",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if valid {
		t.Error("expired subscription must not validate")
	}
}

func TestValidateReceiptRequiresTransactionID(t *testing.T) {
	s := &IAPService{Config: testIAPConfig()}

	resp, err := s.ValidateReceipt(context.Background(), 1, models.ValidateReceiptRequest{
		Platform:  models.PlatformIOS,
		ProductID: "tok.50",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Valid {
		t.Error("missing transaction id must not validate")
	}
}

// A token purchase is credited through the token service, which writes the
// ledger row and balance update and drops any cached balance.
func TestApplyEntitlementCreditsTokens(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT token_balance FROM users").WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"token_balance"}).AddRow(0))
	mock.ExpectExec("INSERT INTO token_ledger").
		WithArgs(1, 50, models.TokenEntryPurchase, "txn-1").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE users SET token_balance").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	s := &IAPService{
		Config: testIAPConfig(),
		Tokens: &TokenService{Repo: &repositories.TokenRepository{DB: db}},
	}

	credited, err := s.applyEntitlement(context.Background(), 1, models.ValidateReceiptRequest{
		Platform:      models.PlatformIOS,
		ProductID:     "tok.50",
		TransactionID: "txn-1",
	})
	if err != nil {
		t.Fatalf("apply entitlement: %v", err)
	}
	if credited != 50 {
		t.Errorf("credited %d tokens, want 50", credited)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestVerifyUnknownPlatform(t *testing.T) {
	s := &IAPService{Config: testIAPConfig()}
	if _, err := s.verify(context.Background(), models.ValidateReceiptRequest{Platform: "windows"}); err == nil {
		t.Error("expected an error for an unknown platform")
	}
}
