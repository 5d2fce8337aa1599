package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"elitehub/payment/exchange"
	"elitehub/payment/gateway"
	"elitehub/web/chat"
	"elitehub/web/db"
	"elitehub/web/db/dbtest"
	"elitehub/web/ledger"
	"elitehub/web/listing"
	"elitehub/web/middleware"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"gorm.io/gorm"
)

const cronSecret = "cron-secret"

type fakeGateway struct {
	mu          sync.Mutex
	txns        map[string]gateway.Transaction
	accountName string
}

func (f *fakeGateway) VerifyTransaction(_ context.Context, reference string) (*gateway.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.txns[reference]
	if !ok {
		return nil, gateway.ErrUnknownReference
	}
	return &t, nil
}

func (f *fakeGateway) ResolveBank(_ context.Context, accountNumber, _ string) (*gateway.Account, error) {
	return &gateway.Account{AccountNumber: accountNumber, AccountName: f.accountName}, nil
}

func (f *fakeGateway) pay(reference string, amount int64, status string) {
	f.payIn(reference, amount, "NGN", status)
}

func (f *fakeGateway) payIn(reference string, amount int64, currency, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txns[reference] = gateway.Transaction{Reference: reference, Amount: amount, Currency: currency, Status: status}
}

type env struct {
	t    *testing.T
	conn *gorm.DB
	gw   *fakeGateway
	r    *gin.Engine
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn := dbtest.Open(t)
	log := logrus.New()
	log.SetOutput(io.Discard)

	rates := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"result":"success","rates":{"USD":1,"NGN":1500}}`)
	}))
	t.Cleanup(rates.Close)

	gw := &fakeGateway{txns: map[string]gateway.Transaction{}, accountName: "ADA OBI"}
	h := New(Deps{
		DB:           conn,
		Log:          log,
		Ledger:       ledger.New(conn, log),
		Directory:    listing.New(conn, log),
		Chat:         chat.New(conn, chat.NewHub(), log),
		Auth:         middleware.NewAuth(conn, "test-secret", time.Hour),
		Gateway:      gw,
		Exchange:     exchange.NewConverter(rates.URL, log),
		ShareBaseURL: "https://elitehub.test/signup",
	})
	r := h.Router(RouterConfig{Origins: []string{"*"}, CronSecret: cronSecret})
	return &env{t: t, conn: conn, gw: gw, r: r}
}

func (e *env) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(e.t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

type account struct {
	uid, token, code string
}

func (e *env) signup(name, code string) (account, bool) {
	e.t.Helper()
	email := strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com"
	w := e.do("POST", "/signup", "", gin.H{
		"full_name":     name,
		"email":         email,
		"password":      "correct-horse",
		"referral_code": code,
	})
	require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())
	body := w.Body.String()
	return account{
		uid:   gjson.Get(body, "user.uid").String(),
		token: gjson.Get(body, "token").String(),
		code:  gjson.Get(body, "user.referral_code").String(),
	}, gjson.Get(body, "referral_applied").Bool()
}

func (e *env) admin() account {
	e.t.Helper()
	a, _ := e.signup("Site Admin", "")
	require.NoError(e.t, e.conn.Model(&db.User{}).Where("uid = ?", a.uid).Update("role", db.RoleAdmin).Error)
	return a
}

func (e *env) balance(uid string) int64 {
	e.t.Helper()
	var u db.User
	require.NoError(e.t, e.conn.Where("uid = ?", uid).First(&u).Error)
	return u.ReferralBalance
}

var vendorPayload = gin.H{
	"business_name": "Obi Fabrics",
	"category":      "textiles",
	"address":       "12 Marina, Lagos",
}

// approvedVendor submits and approves a vendor application for a and
// returns the provider id.
func (e *env) approvedVendor(a, admin account) string {
	e.t.Helper()
	w := e.do("POST", "/applications", a.token, gin.H{"type": "vendor", "payload": vendorPayload})
	require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())
	appID := gjson.Get(w.Body.String(), "application.id").String()

	w = e.do("POST", "/admin/applications/vendor/"+appID+"/approve", admin.token, nil)
	require.Equal(e.t, http.StatusOK, w.Code, w.Body.String())
	return gjson.Get(w.Body.String(), "provider.id").String()
}

func TestReferralFlowThroughApproval(t *testing.T) {
	e := newEnv(t)
	admin := e.admin()
	ada, _ := e.signup("Ada Obi", "")
	require.Len(t, ada.code, 8)

	bola, applied := e.signup("Bola Ade", strings.ToLower(ada.code))
	assert.True(t, applied)

	w := e.do("GET", "/referrals", ada.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Equal(t, ada.code, gjson.Get(body, "summary.referral_code").String())
	assert.Equal(t, int64(1), gjson.Get(body, "summary.pending_referrals.#").Int())
	assert.Equal(t, "Bola Ade", gjson.Get(body, "summary.pending_referrals.0.full_name").String())
	assert.Equal(t, int64(0), gjson.Get(body, "summary.successful_referrals.#").Int())
	assert.Equal(t, "https://elitehub.test/signup?ref="+ada.code, gjson.Get(body, "share_link").String())

	w = e.do("POST", "/applications", bola.token, gin.H{"type": "vendor", "payload": vendorPayload})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	appID := gjson.Get(w.Body.String(), "application.id").String()

	w = e.do("GET", "/admin/applications", admin.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, appID, gjson.Get(w.Body.String(), "applications.0.id").String())

	w = e.do("POST", "/admin/applications/vendor/"+appID+"/approve", admin.token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, int64(500_00), gjson.Get(w.Body.String(), "referral.reward_amount").Int())

	w = e.do("GET", "/referrals", ada.token, nil)
	body = w.Body.String()
	assert.Equal(t, int64(0), gjson.Get(body, "summary.pending_referrals.#").Int())
	assert.Equal(t, int64(1), gjson.Get(body, "summary.successful_referrals.#").Int())
	assert.Equal(t, int64(500_00), gjson.Get(body, "summary.referral_balance").Int())
	assert.Equal(t, "Bronze", gjson.Get(body, "summary.tier.name").String())

	// a second approval changes nothing
	w = e.do("POST", "/admin/applications/vendor/"+appID+"/approve", admin.token, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, int64(500_00), e.balance(ada.uid))

	w = e.do("GET", "/providers/vendor", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), gjson.Get(w.Body.String(), "total").Int())
	assert.Equal(t, "Obi Fabrics", gjson.Get(w.Body.String(), "providers.0.profile.business_name").String())

	w = e.do("GET", "/notifications", ada.token, nil)
	kinds := gjson.Get(w.Body.String(), "notifications.#.kind").Array()
	var got []string
	for _, k := range kinds {
		got = append(got, k.String())
	}
	assert.Contains(t, got, "referral_successful")
}

func TestApprovalErrors(t *testing.T) {
	e := newEnv(t)
	admin := e.admin()
	ada, _ := e.signup("Ada Obi", "")

	w := e.do("POST", "/applications", ada.token, gin.H{"type": "vendor", "payload": vendorPayload})
	require.Equal(t, http.StatusCreated, w.Code)
	appID := gjson.Get(w.Body.String(), "application.id").String()

	w = e.do("POST", "/applications", ada.token, gin.H{"type": "vendor", "payload": vendorPayload})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = e.do("POST", "/applications", ada.token, gin.H{"type": "vendor", "payload": gin.H{"category": "x"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do("POST", "/admin/applications/boats/"+appID+"/approve", admin.token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do("POST", "/admin/applications/lawyer/"+appID+"/approve", admin.token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do("POST", "/admin/applications/vendor/missing/approve", admin.token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do("POST", "/admin/applications/vendor/"+appID+"/reject", admin.token, gin.H{"reason": "incomplete address"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "rejected", gjson.Get(w.Body.String(), "application.status").String())

	w = e.do("POST", "/admin/applications/vendor/"+appID+"/approve", admin.token, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = e.do("GET", "/applications", ada.token, nil)
	assert.Equal(t, "incomplete address", gjson.Get(w.Body.String(), "applications.0.reason").String())
}

func TestSignupAndLogin(t *testing.T) {
	e := newEnv(t)
	ada, _ := e.signup("Ada Obi", "")

	_, applied := e.signup("Bola Ade", "NOPE0000")
	assert.False(t, applied, "unknown code is ignored")

	w := e.do("POST", "/signup", "", gin.H{"full_name": "Ada Again", "email": "ADA.OBI@example.com", "password": "correct-horse"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = e.do("POST", "/signup", "", gin.H{"full_name": "Short", "email": "short@example.com", "password": "123"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do("POST", "/login", "", gin.H{"email": "ada.obi@example.com", "password": "correct-horse"})
	require.Equal(t, http.StatusOK, w.Code)
	token := gjson.Get(w.Body.String(), "token").String()
	assert.NotEmpty(t, token)

	w = e.do("POST", "/login", "", gin.H{"email": "ada.obi@example.com", "password": "wrong-horse"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do("GET", "/user", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, ada.uid, gjson.Get(w.Body.String(), "user.uid").String())
	assert.False(t, gjson.Get(w.Body.String(), "user.password").Exists())
}

func TestSignupEmailRace(t *testing.T) {
	e := newEnv(t)

	// another signup with the same email lands after the email check
	raced := false
	require.NoError(t, e.conn.Callback().Create().Before("gorm:begin_transaction").Register("test:competing_signup", func(tx *gorm.DB) {
		if raced || tx.Statement.Table != "users" {
			return
		}
		raced = true
		other := db.User{UID: "uid-first", FullName: "Ada First", Email: "ada.obi@example.com", Password: "x", Role: db.RoleUser, ReferralCode: "FIRST001"}
		require.NoError(t, tx.Session(&gorm.Session{NewDB: true}).Create(&other).Error)
	}))

	w := e.do("POST", "/signup", "", gin.H{"full_name": "Ada Obi", "email": "ada.obi@example.com", "password": "correct-horse"})
	assert.True(t, raced)
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())

	var users int64
	require.NoError(t, e.conn.Model(&db.User{}).Count(&users).Error)
	assert.Equal(t, int64(1), users)
}

func TestSignupReportsReferrerWhenReloadFails(t *testing.T) {
	e := newEnv(t)
	ada, _ := e.signup("Ada Obi", "")

	// fail the first users read after the referral sets referred_by
	armed := false
	require.NoError(t, e.conn.Callback().Update().After("gorm:update").Register("test:arm_reload_failure", func(tx *gorm.DB) {
		if tx.Statement.Table == "users" {
			armed = true
		}
	}))
	require.NoError(t, e.conn.Callback().Query().Before("gorm:query").Register("test:reload_failure", func(tx *gorm.DB) {
		if armed && tx.Statement.Table == "users" {
			armed = false
			tx.AddError(errors.New("connection reset"))
		}
	}))

	w := e.do("POST", "/signup", "", gin.H{"full_name": "Bola Ade", "email": "bola.ade@example.com", "password": "correct-horse", "referral_code": ada.code})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.True(t, gjson.Get(w.Body.String(), "referral_applied").Bool())
	assert.Equal(t, ada.uid, gjson.Get(w.Body.String(), "user.referred_by").String())
}

func TestReapplyAfterApproval(t *testing.T) {
	e := newEnv(t)
	admin := e.admin()
	ada, _ := e.signup("Ada Obi", "")
	e.approvedVendor(ada, admin)

	w := e.do("POST", "/applications", ada.token, gin.H{"type": "vendor", "payload": vendorPayload})
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())

	w = e.do("GET", "/providers/vendor", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), gjson.Get(w.Body.String(), "total").Int())
}

func TestAccessControl(t *testing.T) {
	e := newEnv(t)
	ada, _ := e.signup("Ada Obi", "")

	assert.Equal(t, http.StatusUnauthorized, e.do("GET", "/referrals", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, e.do("GET", "/user", "garbage", nil).Code)
	assert.Equal(t, http.StatusForbidden, e.do("GET", "/admin/applications", ada.token, nil).Code)
	assert.Equal(t, http.StatusForbidden, e.do("POST", "/admin/payouts/x/decide", ada.token, gin.H{"decision": "approve"}).Code)
}

func TestPayoutFlow(t *testing.T) {
	e := newEnv(t)
	admin := e.admin()
	ada, _ := e.signup("Ada Obi", "")
	require.NoError(t, e.conn.Model(&db.User{}).Where("uid = ?", ada.uid).Update("referral_balance", 500_00).Error)

	bank := gin.H{"amount": 300_00, "bank_code": "058", "account_number": "0123456789"}
	w := e.do("POST", "/payouts", ada.token, bank)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := gjson.Get(w.Body.String(), "payout.id").String()
	assert.Equal(t, "ADA OBI", gjson.Get(w.Body.String(), "payout.account_name").String())
	assert.Equal(t, int64(200_00), e.balance(ada.uid))

	w = e.do("POST", "/payouts", ada.token, bank)
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Equal(t, int64(200_00), e.balance(ada.uid))

	w = e.do("POST", "/payouts", ada.token, gin.H{"amount": 100, "bank_code": "058", "account_number": "12"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do("GET", "/admin/payouts", admin.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), gjson.Get(w.Body.String(), "payouts.#").Int())

	w = e.do("POST", "/admin/payouts/"+id+"/decide", admin.token, gin.H{"decision": "maybe"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do("POST", "/admin/payouts/"+id+"/decide", admin.token, gin.H{"decision": "reject", "reason": "account mismatch"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "rejected", gjson.Get(w.Body.String(), "payout.status").String())
	assert.Equal(t, int64(500_00), e.balance(ada.uid))

	w = e.do("POST", "/admin/payouts/"+id+"/decide", admin.token, gin.H{"decision": "approve"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, int64(500_00), e.balance(ada.uid))

	w = e.do("GET", "/payouts", ada.token, nil)
	assert.Equal(t, "account mismatch", gjson.Get(w.Body.String(), "payouts.0.reason").String())
}

func TestTierPurchase(t *testing.T) {
	e := newEnv(t)
	admin := e.admin()
	ada, _ := e.signup("Ada Obi", "")
	bola, _ := e.signup("Bola Ade", "")
	id := e.approvedVendor(ada, admin)
	path := "/providers/vendor/" + id + "/tier/purchase"

	e.gw.pay("ref-ok", listing.TierPrices[db.TierVIP], "success")
	e.gw.pay("ref-low", 100, "success")
	e.gw.pay("ref-failed", listing.TierPrices[db.TierVIP], "failed")
	e.gw.payIn("ref-usd", listing.TierPrices[db.TierVVIP], "USD", "success")

	assert.Equal(t, http.StatusNotFound, e.do("POST", path, ada.token, gin.H{"tier": "VIP", "reference": "ref-unknown"}).Code)
	assert.Equal(t, http.StatusPaymentRequired, e.do("POST", path, ada.token, gin.H{"tier": "VIP", "reference": "ref-failed"}).Code)
	assert.Equal(t, http.StatusPaymentRequired, e.do("POST", path, ada.token, gin.H{"tier": "VIP", "reference": "ref-low"}).Code)
	assert.Equal(t, http.StatusBadRequest, e.do("POST", path, ada.token, gin.H{"tier": "PLATINUM", "reference": "ref-ok"}).Code)
	assert.Equal(t, http.StatusBadRequest, e.do("POST", path, ada.token, gin.H{"tier": "VIP", "reference": "ref-usd"}).Code)
	assert.Equal(t, http.StatusForbidden, e.do("POST", path, bola.token, gin.H{"tier": "VIP", "reference": "ref-ok"}).Code)

	w := e.do("POST", path, ada.token, gin.H{"tier": "vip", "reference": "ref-ok"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "VIP", gjson.Get(w.Body.String(), "provider.tier").String())

	assert.Equal(t, http.StatusConflict, e.do("POST", path, ada.token, gin.H{"tier": "VIP", "reference": "ref-ok"}).Code)

	w = e.do("POST", "/admin/providers/vendor/"+id+"/tier", admin.token, gin.H{"tier": ""})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.False(t, gjson.Get(w.Body.String(), "provider.tier").Exists())
}

func TestVerifyPayment(t *testing.T) {
	e := newEnv(t)
	ada, _ := e.signup("Ada Obi", "")
	e.gw.pay("ref-1", 2_500_00, "success")

	w := e.do("POST", "/payments/verify", ada.token, gin.H{"reference": "ref-1", "purpose": "wallet"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, int64(2_500_00), gjson.Get(w.Body.String(), "payment.amount").Int())

	assert.Equal(t, http.StatusConflict, e.do("POST", "/payments/verify", ada.token, gin.H{"reference": "ref-1"}).Code)
	assert.Equal(t, http.StatusNotFound, e.do("POST", "/payments/verify", ada.token, gin.H{"reference": "ref-2"}).Code)
}

func TestVerifyPaymentReferenceRace(t *testing.T) {
	e := newEnv(t)
	ada, _ := e.signup("Ada Obi", "")
	e.gw.pay("ref-race", 2_500_00, "success")

	// a concurrent verify records the reference after the used check
	raced := false
	require.NoError(t, e.conn.Callback().Create().Before("gorm:create").Register("test:competing_verify", func(tx *gorm.DB) {
		if raced || tx.Statement.Table != "gateway_payments" {
			return
		}
		raced = true
		other := db.GatewayPayment{Reference: "ref-race", UID: ada.uid, Amount: 2_500_00, Currency: "NGN", Status: "success"}
		require.NoError(t, tx.Session(&gorm.Session{NewDB: true}).Create(&other).Error)
	}))

	w := e.do("POST", "/payments/verify", ada.token, gin.H{"reference": "ref-race"})
	assert.True(t, raced)
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())
}

func TestNotificationsAndCleanup(t *testing.T) {
	e := newEnv(t)
	ada, _ := e.signup("Ada Obi", "")

	old := db.Notification{UserUID: ada.uid, Kind: "test", Title: "old", Read: true, CreatedAt: time.Now().Add(-90 * 24 * time.Hour)}
	fresh := db.Notification{UserUID: ada.uid, Kind: "test", Title: "fresh"}
	require.NoError(t, e.conn.Create(&old).Error)
	require.NoError(t, e.conn.Create(&fresh).Error)

	w := e.do("GET", "/notifications?unread=true", ada.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), gjson.Get(w.Body.String(), "notifications.#").Int())

	assert.Equal(t, http.StatusOK, e.do("POST", fmt.Sprintf("/notifications/%d/read", fresh.ID), ada.token, nil).Code)
	assert.Equal(t, http.StatusOK, e.do("POST", fmt.Sprintf("/notifications/%d/read", fresh.ID), ada.token, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do("POST", "/notifications/9999/read", ada.token, nil).Code)
	bola, _ := e.signup("Bola Ade", "")
	assert.Equal(t, http.StatusNotFound, e.do("POST", fmt.Sprintf("/notifications/%d/read", fresh.ID), bola.token, nil).Code)

	assert.Equal(t, http.StatusForbidden, e.do("GET", "/cron/cleanup", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, e.do("GET", "/cron/cleanup?secret=wrong", "", nil).Code)

	w = e.do("GET", "/cron/cleanup?secret="+cronSecret, "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, int64(1), gjson.Get(w.Body.String(), "deleted_notifications").Int())

	var left int64
	require.NoError(t, e.conn.Model(&db.Notification{}).Where("user_uid = ?", ada.uid).Count(&left).Error)
	assert.Equal(t, int64(1), left)
}

func TestQRCodeAndQuote(t *testing.T) {
	e := newEnv(t)
	ada, _ := e.signup("Ada Obi", "")

	w := e.do("GET", "/referrals/qrcode", ada.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))
	assert.Equal(t, http.StatusBadRequest, e.do("GET", "/referrals/qrcode?size=5", ada.token, nil).Code)

	w = e.do("GET", "/exchange/quote?amount=10&from=usd&to=ngn", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.InDelta(t, 15000.0, gjson.Get(w.Body.String(), "result").Float(), 0.01)

	assert.Equal(t, http.StatusBadRequest, e.do("GET", "/exchange/quote?amount=10&from=USD&to=XYZ", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, e.do("GET", "/exchange/quote?amount=ten", "", nil).Code)
}

func TestChatRoutes(t *testing.T) {
	e := newEnv(t)
	ada, _ := e.signup("Ada Obi", "")
	bola, _ := e.signup("Bola Ade", "")
	cara, _ := e.signup("Cara Eze", "")

	w := e.do("POST", "/chats", ada.token, gin.H{"peer_uid": bola.uid})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	chatID := gjson.Get(w.Body.String(), "chat.id").String()

	assert.Equal(t, http.StatusBadRequest, e.do("POST", "/chats", ada.token, gin.H{"peer_uid": ada.uid}).Code)

	w = e.do("POST", "/chats/"+chatID+"/messages", bola.token, gin.H{"text": "Is the fabric in stock?"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = e.do("GET", "/chats/"+chatID+"/messages", ada.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Is the fabric in stock?", gjson.Get(w.Body.String(), "messages.0.text").String())

	assert.Equal(t, http.StatusForbidden, e.do("GET", "/chats/"+chatID+"/messages", cara.token, nil).Code)
	assert.Equal(t, http.StatusForbidden, e.do("GET", "/chats/"+chatID+"/ws", cara.token, nil).Code)

	// a cross-site page carrying only the session cookie cannot open the socket
	req := httptest.NewRequest("GET", "/chats/"+chatID+"/ws", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.AddCookie(&http.Cookie{Name: "Authorization", Value: ada.token})
	w = httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHealth(t *testing.T) {
	e := newEnv(t)
	w := e.do("GET", "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", gjson.Get(w.Body.String(), "database").String())

	assert.Equal(t, http.StatusNotFound, e.do("GET", "/nowhere", "", nil).Code)
}

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{ledger.ErrNotFound, http.StatusNotFound},
		{ledger.ErrAlreadyApproved, http.StatusConflict},
		{fmt.Errorf("vendor uid-x: %w", ledger.ErrAlreadyProvider), http.StatusConflict},
		{listing.ErrWrongCurrency, http.StatusBadRequest},
		{ledger.ErrInsufficientBalance, http.StatusPaymentRequired},
		{ledger.ErrInvalidPayload, http.StatusBadRequest},
		{chat.ErrNotMember, http.StatusForbidden},
		{gateway.ErrNotConfigured, http.StatusServiceUnavailable},
		{fmt.Errorf("wrapped: %w", listing.ErrReferenceUsed), http.StatusConflict},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusOf(tc.err), tc.err.Error())
	}
}
