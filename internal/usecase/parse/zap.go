package parse

import (
	"strings"

	"zapgoals/internal/domain"
)

// maxAmountMsat caps amounts at the total bitcoin supply.
const maxAmountMsat = domain.MaxSupplySats * 1000

// ValueTransfer parses a kind 9735 zap receipt. A broken embedded zap request
// only loses the zapper and memo, never the receipt.
func (p *Parser) ValueTransfer(ev domain.RawEvent) (domain.ValueTransfer, error) {
	if err := expectKind(ev, domain.KindZapReceipt); err != nil {
		return domain.ValueTransfer{}, err
	}
	target := tagValue(ev.Tags, "e")
	recipient := tagValue(ev.Tags, "p")
	if target == "" && recipient == "" {
		return domain.ValueTransfer{}, malformed("zap receipt without target and recipient")
	}

	req := decodeZapRequest(tagValue(ev.Tags, "description"))

	zapper := req.pubkey
	if zapper == "" {
		zapper = tagValue(ev.Tags, "P")
	}

	return domain.ValueTransfer{
		EventID:         ev.ID,
		TargetEventID:   target,
		RecipientPubkey: recipient,
		ZapperPubkey:    zapper,
		AmountMsat:      zapAmount(ev.Tags, req),
		Memo:            req.memo,
		CreatedAt:       p.createdAt(ev),
	}, nil
}

type zapRequest struct {
	pubkey     string
	memo       string
	amountMsat int64
}

func decodeZapRequest(description string) zapRequest {
	fields, ok := jsonObject(description)
	if !ok {
		return zapRequest{}
	}
	req := zapRequest{pubkey: stringField(fields, "pubkey")}
	if memo, ok := fields["content"].(string); ok {
		req.memo = strings.TrimSpace(memo)
	}
	if tags, ok := fields["tags"].([]any); ok {
		for _, raw := range tags {
			tag, ok := raw.([]any)
			if !ok || len(tag) < 2 {
				continue
			}
			name, _ := tag[0].(string)
			value, _ := tag[1].(string)
			if name != "amount" {
				continue
			}
			if n, ok := positiveInt(value); ok {
				req.amountMsat = n
				break
			}
		}
	}
	return req
}

// zapAmount resolves the amount in millisatoshis: the receipt amount tag,
// then the bolt11 invoice, then the zap request amount, else zero.
func zapAmount(tags [][]string, req zapRequest) int64 {
	amount := int64(0)
	if n, ok := positiveInt(tagValue(tags, "amount")); ok {
		amount = n
	} else if n, ok := DecodeInvoiceAmount(tagValue(tags, "bolt11")); ok {
		amount = n
	} else if req.amountMsat > 0 {
		amount = req.amountMsat
	}
	if amount > maxAmountMsat {
		amount = maxAmountMsat
	}
	return amount
}
