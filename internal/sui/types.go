package sui

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// coinPage is the result of suix_getCoins.
type coinPage struct {
	Data []struct {
		CoinType     string `json:"coinType"`
		CoinObjectID string `json:"coinObjectId"`
		Version      string `json:"version"`
		Digest       string `json:"digest"`
		Balance      string `json:"balance"`
	} `json:"data"`
	NextCursor  *string `json:"nextCursor"`
	HasNextPage bool    `json:"hasNextPage"`
}

// objectResponse is one entry of sui_getObject / sui_multiGetObjects.
type objectResponse struct {
	Data  *objectData     `json:"data"`
	Error json.RawMessage `json:"error,omitempty"`
}

type objectData struct {
	ObjectID string          `json:"objectId"`
	Version  string          `json:"version"`
	Digest   string          `json:"digest"`
	Type     string          `json:"type"`
	Owner    json.RawMessage `json:"owner"`
	Content  *struct {
		DataType string                     `json:"dataType"`
		Type     string                     `json:"type"`
		Fields   map[string]json.RawMessage `json:"fields"`
	} `json:"content"`
}

// ownerInfo is the decoded owner of an object.
type ownerInfo struct {
	Address              string
	Shared               bool
	InitialSharedVersion uint64
	Immutable            bool
}

func parseOwner(raw json.RawMessage) (ownerInfo, error) {
	if len(raw) == 0 {
		return ownerInfo{}, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "Immutable" {
			return ownerInfo{Immutable: true}, nil
		}
		return ownerInfo{}, fmt.Errorf("unknown owner %q", s)
	}

	var o struct {
		AddressOwner string `json:"AddressOwner"`
		ObjectOwner  string `json:"ObjectOwner"`
		Shared       *struct {
			InitialSharedVersion json.Number `json:"initial_shared_version"`
		} `json:"Shared"`
	}
	if err := json.Unmarshal(raw, &o); err != nil {
		return ownerInfo{}, fmt.Errorf("parsing owner: %w", err)
	}
	switch {
	case o.Shared != nil:
		v, err := strconv.ParseUint(o.Shared.InitialSharedVersion.String(), 10, 64)
		if err != nil {
			return ownerInfo{}, fmt.Errorf("parsing initial shared version: %w", err)
		}
		return ownerInfo{Shared: true, InitialSharedVersion: v}, nil
	case o.AddressOwner != "":
		return ownerInfo{Address: o.AddressOwner}, nil
	case o.ObjectOwner != "":
		return ownerInfo{Address: o.ObjectOwner}, nil
	}
	return ownerInfo{}, fmt.Errorf("unrecognised owner %s", string(raw))
}

type executionStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type rawBalanceChange struct {
	Owner    json.RawMessage `json:"owner"`
	CoinType string          `json:"coinType"`
	Amount   string          `json:"amount"`
}

type rawEvent struct {
	Type       string          `json:"type"`
	Sender     string          `json:"sender"`
	PackageID  string          `json:"packageId"`
	Module     string          `json:"transactionModule"`
	ParsedJSON json.RawMessage `json:"parsedJson"`
}

type rawObjectChange struct {
	Type       string `json:"type"`
	ObjectID   string `json:"objectId"`
	ObjectType string `json:"objectType"`
}

// dryRunResponse is the result of sui_dryRunTransactionBlock.
type dryRunResponse struct {
	Effects struct {
		Status executionStatus `json:"status"`
	} `json:"effects"`
	Events         []rawEvent         `json:"events"`
	BalanceChanges []rawBalanceChange `json:"balanceChanges"`
	ObjectChanges  []rawObjectChange  `json:"objectChanges"`
}

// txBlockResponse is the result of sui_executeTransactionBlock and sui_getTransactionBlock.
type txBlockResponse struct {
	Digest  string `json:"digest"`
	Effects *struct {
		Status executionStatus `json:"status"`
	} `json:"effects"`
	Events         []rawEvent         `json:"events"`
	BalanceChanges []rawBalanceChange `json:"balanceChanges"`
	ObjectChanges  []rawObjectChange  `json:"objectChanges"`
	Checkpoint     string             `json:"checkpoint,omitempty"`
}

// parseBigInt accepts a JSON string or number holding a base-10 integer.
func parseBigInt(raw json.RawMessage) (*big.Int, error) {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return nil, fmt.Errorf("empty integer")
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", s)
	}
	return v, nil
}
