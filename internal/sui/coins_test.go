package sui

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mtlprog/swapkit/internal/domain"
)

const testsui domain.CoinType = "0xabc::testsui::TESTSUI"

func TestListCoinsPaginates(t *testing.T) {
	node, client := newFakeNode(t, map[string]rpcHandler{
		"suix_getCoins": func(params json.RawMessage) (any, *RPCError) {
			var p []any
			json.Unmarshal(params, &p)
			if p[2] == nil {
				return json.RawMessage(`{"data":[
					{"coinType":"0xabc::testsui::TESTSUI","coinObjectId":"0x1","version":"3","digest":"` + zeroDigest + `","balance":"500"}
				],"nextCursor":"c1","hasNextPage":true}`), nil
			}
			return json.RawMessage(`{"data":[
				{"coinType":"0xabc::testsui::TESTSUI","coinObjectId":"0x2","version":"7","digest":"` + zeroDigest + `","balance":"300"}
			],"nextCursor":null,"hasNextPage":false}`), nil
		},
	})

	coins, err := client.ListCoins(context.Background(), "0xowner", testsui)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(coins) != 2 {
		t.Fatalf("got %d coins, want 2", len(coins))
	}
	if coins[0].ID != "0x1" || coins[0].Amount.Int64() != 500 || coins[0].Version != 3 {
		t.Errorf("first coin = %+v", coins[0])
	}
	if coins[1].ID != "0x2" || coins[1].Amount.Int64() != 300 {
		t.Errorf("second coin = %+v", coins[1])
	}
	if got := node.count("suix_getCoins"); got != 2 {
		t.Errorf("pages fetched = %d, want 2", got)
	}
}

func TestListCoinsRejectsBadBalance(t *testing.T) {
	_, client := newFakeNode(t, map[string]rpcHandler{
		"suix_getCoins": rawJSON(`{"data":[{"coinType":"0xabc::testsui::TESTSUI","coinObjectId":"0x1","version":"1","digest":"d","balance":"lots"}],"hasNextPage":false}`),
	})
	if _, err := client.ListCoins(context.Background(), "0xowner", testsui); err == nil {
		t.Fatal("expected error for unparsable balance")
	}
}

func TestGetObjectShared(t *testing.T) {
	_, client := newFakeNode(t, map[string]rpcHandler{
		"sui_getObject": rawJSON(`{"data":{
			"objectId":"0xpool","version":"42","digest":"` + zeroDigest + `","type":"0xpkg::pumpsui_core::Pool<0xt::tok::TOK>",
			"owner":{"Shared":{"initial_shared_version":9}},
			"content":{"dataType":"moveObject","fields":{"total_supply":"1000","collected_sui":"250","status":1}}
		}}`),
	})

	obj, err := client.GetObject(context.Background(), "0xpool")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !obj.Shared || obj.InitialSharedVersion != 9 {
		t.Errorf("owner = shared:%v initial:%d, want shared at 9", obj.Shared, obj.InitialSharedVersion)
	}
	if obj.Ref.Version != 42 {
		t.Errorf("version = %d, want 42", obj.Ref.Version)
	}
	if s, ok := obj.StringField("collected_sui"); !ok || s != "250" {
		t.Errorf("collected_sui = %q, %v", s, ok)
	}
	if s, ok := obj.StringField("status"); !ok || s != "1" {
		t.Errorf("status = %q, %v", s, ok)
	}
}

func TestGetObjectNotFound(t *testing.T) {
	_, client := newFakeNode(t, map[string]rpcHandler{
		"sui_getObject": rawJSON(`{"error":{"code":"notExists","object_id":"0xgone"}}`),
	})
	_, err := client.GetObject(context.Background(), "0xgone")
	if !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}
}
