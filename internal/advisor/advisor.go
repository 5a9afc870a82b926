package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/shopspring/decimal"

	"buluterp/backend/internal/domain"
)

// ErrDisabled is returned when no model backend is configured.
var ErrDisabled = errors.New("advisor is not configured")

const (
	defaultModel   = openai.GPT4oMini
	requestTimeout = 30 * time.Second
	maxSalesInView = 20
	maxTopProducts = 5
)

// BusinessContext is the compact snapshot of shop state sent alongside every
// question. Keep it small: it rides in the prompt on each request.
type BusinessContext struct {
	TotalProducts         int                `json:"totalProducts"`
	CriticalStockProducts []CriticalProduct  `json:"criticalStockProducts"`
	RecentSalesTotal      string             `json:"recentSalesTotal"`
	SalesCount            int                `json:"salesCount"`
	TopProducts           []ProductHighlight `json:"topProducts"`
}

type CriticalProduct struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

type ProductHighlight struct {
	Name  string `json:"name"`
	Stock int    `json:"stock"`
	Price string `json:"price"`
}

// BuildContext condenses the catalog and the most recent sales into the
// prompt payload. Top products are the highest retail stock value
// (price times stock). Sales are expected most-recent-first; only the
// newest twenty count toward the recent total.
func BuildContext(products []domain.Product, sales []domain.Sale) BusinessContext {
	bc := BusinessContext{
		TotalProducts:         len(products),
		CriticalStockProducts: []CriticalProduct{},
		SalesCount:            len(sales),
		TopProducts:           []ProductHighlight{},
	}

	for _, p := range products {
		if p.Critical() {
			bc.CriticalStockProducts = append(bc.CriticalStockProducts, CriticalProduct{Name: p.Name, Code: p.Code})
		}
	}

	ranked := make([]domain.Product, len(products))
	copy(ranked, products)
	sort.SliceStable(ranked, func(i, j int) bool {
		return stockValue(ranked[i]).GreaterThan(stockValue(ranked[j]))
	})
	for i, p := range ranked {
		if i >= maxTopProducts {
			break
		}
		bc.TopProducts = append(bc.TopProducts, ProductHighlight{
			Name:  p.Name,
			Stock: p.Stock,
			Price: p.Price.StringFixed(2),
		})
	}

	recent := sales
	if len(recent) > maxSalesInView {
		recent = recent[:maxSalesInView]
	}
	sum := decimal.Zero
	for _, s := range recent {
		sum = sum.Add(s.Total)
	}
	bc.RecentSalesTotal = sum.StringFixed(2)

	return bc
}

func stockValue(p domain.Product) decimal.Decimal {
	return p.Price.Mul(decimal.NewFromInt(int64(p.Stock)))
}

// Client answers free-form questions about the shop.
type Client interface {
	Advise(ctx context.Context, bc BusinessContext, question string) (string, error)
}

type Disabled struct{}

func (Disabled) Advise(_ context.Context, _ BusinessContext, _ string) (string, error) {
	return "", ErrDisabled
}

type OpenAI struct {
	client *openai.Client
	model  string
}

func NewOpenAI(apiKey string, model string) *OpenAI {
	if model == "" {
		model = defaultModel
	}
	return &OpenAI{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

const systemPrompt = `Sen küçük bir işletmenin deneyimli mali müşaviri ve iş danışmanısın.
Aşağıdaki JSON işletmenin güncel durumunu özetler. Soruları bu verilere
dayanarak, kısa ve uygulanabilir önerilerle Türkçe yanıtla.

İŞLETME DURUMU:
%s`

func (o *OpenAI) Advise(ctx context.Context, bc BusinessContext, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", errors.New("question is empty")
	}

	payload, err := json.Marshal(bc)
	if err != nil {
		return "", fmt.Errorf("marshal business context: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := o.client.CreateChatCompletion(reqCtx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: fmt.Sprintf(systemPrompt, string(payload)),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: question,
			},
		},
		Temperature: 0.3,
		MaxTokens:   800,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty completion response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
