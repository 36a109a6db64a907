package binance

import (
	"context"
	"fmt"
	"time"

	sdk "github.com/adshao/go-binance/v2"
	"github.com/google/uuid"

	"tradepilot/internal/types"
)

// TestOrderClient 通过 /api/v3/order/test 校验下单参数（签名、精度、交易对），
// 交易所不会真正撮合；校验通过后按请求价格合成一笔完全成交的订单。
type TestOrderClient struct {
	cfg    Config
	client *sdk.Client
	now    func() time.Time
}

func NewTestOrderClient(cfg Config) (*TestOrderClient, error) {
	final := cfg.withDefaults()
	if final.APIKey == "" || final.APISecret == "" {
		return nil, fmt.Errorf("binance 测试下单需要 api_key/api_secret")
	}
	return &TestOrderClient{cfg: final, client: final.newClient(), now: time.Now}, nil
}

func (c *TestOrderClient) CreateOrder(ctx context.Context, req types.OrderRequest) (types.Order, error) {
	side, err := sideType(req.Side)
	if err != nil {
		return types.Order{}, err
	}
	orderType := req.Type
	if orderType == "" {
		orderType = types.OrderTypeMarket
	}
	svc := c.client.NewCreateOrderService().
		Symbol(exchangeSymbol(req.Symbol)).
		Side(side).
		Type(sdk.OrderType(orderType)).
		Quantity(req.Quantity.String()).
		NewClientOrderID(req.ClientOrderID)
	if orderType != types.OrderTypeMarket {
		tif := req.TimeInForce
		if tif == "" {
			tif = types.TimeInForceGTC
		}
		svc = svc.TimeInForce(sdk.TimeInForceType(tif)).Price(req.Price.String())
	}
	if req.StopPrice.Valid {
		svc = svc.StopPrice(req.StopPrice.Decimal.String())
	}
	if err := svc.Test(ctx); err != nil {
		return types.Order{}, fmt.Errorf("binance test order %s %s: %w", req.Side, req.Symbol, err)
	}
	tif := req.TimeInForce
	if tif == "" {
		tif = types.TimeInForceGTC
	}
	return types.Order{
		OrderID:          uuid.NewString(),
		ClientOrderID:    req.ClientOrderID,
		Symbol:           req.Symbol,
		Side:             req.Side,
		Type:             orderType,
		TimeInForce:      tif,
		Quantity:         req.Quantity,
		Price:            req.Price,
		StopPrice:        req.StopPrice,
		Status:           types.OrderStatusFilled,
		ExecutedQuantity: req.Quantity,
		CreatedAt:        c.now().UTC(),
	}, nil
}

func sideType(side types.Side) (sdk.SideType, error) {
	switch side {
	case types.SideBuy:
		return sdk.SideTypeBuy, nil
	case types.SideSell:
		return sdk.SideTypeSell, nil
	default:
		return "", fmt.Errorf("未知 side %q", side)
	}
}
