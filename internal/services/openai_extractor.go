package services

import (
  "bytes"
  "context"
  "encoding/base64"
  "encoding/json"
  "errors"
  "fmt"
  "io"
  "math/rand"
  "net"
  "net/http"
  "os"
  "strconv"
  "strings"
  "time"

  errs "github.com/yungbote/bodyscan-backend/internal/pkg/errors"
  "github.com/yungbote/bodyscan-backend/internal/logger"
  "github.com/yungbote/bodyscan-backend/internal/utils"
)

const extractionPrompt = `You are analyzing a body composition scan result. This is a printed receipt/report from an InBody machine.

Please extract ALL the numerical data and information you can see in this scan result.
Pay attention to:

1. Basic info: date, height, weight, age, gender
2. Body composition: muscle mass, body fat mass, body fat percentage
3. Body water and fat-free mass (FFM, TBW)
4. Health metrics: BMI, BMR, visceral fat level
5. Additional metrics: PBF, WHR if present
6. Scores: InBody score, fitness score
7. Control recommendations: muscle control, fat control
8. Segmental analysis: lean and fat mass for arms, trunk, legs

The scan might be in different languages but extract the numerical values.
Some fields might not be present on all machine models - just extract what you can see.

IMPORTANT: different machine models call the score either "InBody Score" or "Fitness Score" -
these are the same metric. Extract whichever one is present and put it in the "body_score" field.

For dates, convert to ISO format (YYYY-MM-DD HH:MM:SS). If time is not specified, use 00:00:00.

Return the data in the specified JSON format. If a value is not visible or present, use null.`

type openAIExtractor struct {
  log        *logger.Logger
  baseURL    string
  apiKey     string
  model      string
  httpClient *http.Client

  maxRetries int
}

// NewOpenAIExtractor builds a ScanExtractor backed by the OpenAI
// chat-completions vision endpoint with json_schema structured output.
func NewOpenAIExtractor(log *logger.Logger) (ScanExtractor, error) {
  serviceLog := log.With("service", "OpenAIExtractor")

  apiKey := os.Getenv("OPENAI_API_KEY")
  if apiKey == "" {
    return nil, fmt.Errorf("missing OPENAI_API_KEY")
  }

  baseURL := utils.GetEnv("OPENAI_BASE_URL", "https://api.openai.com", serviceLog)
  model := utils.GetEnv("OPENAI_MODEL", "gpt-4.1", serviceLog)

  timeoutSec := utils.GetEnvAsInt("OPENAI_TIMEOUT_SECONDS", 120, serviceLog)
  if timeoutSec <= 0 {
    timeoutSec = 120
  }

  maxRetries := utils.GetEnvAsInt("OPENAI_MAX_RETRIES", 4, serviceLog)
  if maxRetries < 0 {
    maxRetries = 4
  }

  return &openAIExtractor{
    log:        serviceLog,
    baseURL:    baseURL,
    apiKey:     apiKey,
    model:      model,
    httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
    maxRetries: maxRetries,
  }, nil
}

type openAIHTTPError struct {
  StatusCode int
  Body       string
}

func (e *openAIHTTPError) Error() string {
  return fmt.Sprintf("openai http %d: %s", e.StatusCode, e.Body)
}

func isRetryableHTTP(code int) bool {
  if code == 408 || code == 429 {
    return true
  }
  if code >= 500 && code <= 599 {
    return true
  }
  return false
}

func isRetryableErr(err error) bool {
  if err == nil {
    return false
  }
  if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
    return true
  }
  var netErr net.Error
  if errors.As(err, &netErr) {
    if netErr.Timeout() {
      return true
    }
  }
  var httpErr *openAIHTTPError
  if errors.As(err, &httpErr) {
    return isRetryableHTTP(httpErr.StatusCode)
  }
  return false
}

func jitterSleep(base time.Duration) time.Duration {
  // +/- 20%
  if base <= 0 {
    return 0
  }
  j := 0.2
  delta := base.Seconds() * j
  low := base.Seconds() - delta
  high := base.Seconds() + delta
  if low < 0 {
    low = 0
  }
  v := low + rand.Float64()*(high-low)
  return time.Duration(v * float64(time.Second))
}

type chatContentPart struct {
  Type     string `json:"type"`
  Text     string `json:"text,omitempty"`
  ImageURL *struct {
    URL    string `json:"url"`
    Detail string `json:"detail,omitempty"`
  } `json:"image_url,omitempty"`
}

type chatCompletionRequest struct {
  Model    string `json:"model"`
  Messages []struct {
    Role    string            `json:"role"`
    Content []chatContentPart `json:"content"`
  } `json:"messages"`
  ResponseFormat map[string]any `json:"response_format"`
  MaxTokens      int            `json:"max_tokens,omitempty"`
  Temperature    float64        `json:"temperature"`
}

type chatCompletionResponse struct {
  Choices []struct {
    Message struct {
      Content string `json:"content"`
      Refusal string `json:"refusal,omitempty"`
    } `json:"message"`
  } `json:"choices"`
}

func (c *openAIExtractor) Extract(ctx context.Context, image []byte) (*ExtractedScan, string, error) {
  encoded := base64.StdEncoding.EncodeToString(image)

  imagePart := chatContentPart{Type: "image_url"}
  imagePart.ImageURL = &struct {
    URL    string `json:"url"`
    Detail string `json:"detail,omitempty"`
  }{
    URL:    "data:image/jpeg;base64," + encoded,
    Detail: "high",
  }

  req := chatCompletionRequest{
    Model: c.model,
    Messages: []struct {
      Role    string            `json:"role"`
      Content []chatContentPart `json:"content"`
    }{
      {
        Role: "user",
        Content: []chatContentPart{
          {Type: "text", Text: extractionPrompt},
          imagePart,
        },
      },
    },
    ResponseFormat: map[string]any{
      "type": "json_schema",
      "json_schema": map[string]any{
        "name":   "scan_result",
        "schema": scanResultSchema(),
      },
    },
    MaxTokens:   2000,
    Temperature: 0.1,
  }

  var resp chatCompletionResponse
  if err := c.do(ctx, "POST", "/v1/chat/completions", req, &resp); err != nil {
    return nil, err.Error(), err
  }

  if len(resp.Choices) == 0 {
    return nil, "empty response from openai", fmt.Errorf("no choices in response: %w", errs.ErrEmptyResult)
  }
  if refusal := resp.Choices[0].Message.Refusal; refusal != "" {
    return nil, refusal, fmt.Errorf("model refused: %s: %w", refusal, errs.ErrEmptyResult)
  }

  raw := resp.Choices[0].Message.Content
  if strings.TrimSpace(raw) == "" {
    return nil, "empty response from openai", fmt.Errorf("empty completion content: %w", errs.ErrEmptyResult)
  }

  var extracted ExtractedScan
  if err := json.Unmarshal([]byte(raw), &extracted); err != nil {
    diag := fmt.Sprintf("json decode error: %v; raw response: %s", err, raw)
    return nil, diag, fmt.Errorf("failed to parse model JSON: %w", err)
  }

  return &extracted, raw, nil
}

func (c *openAIExtractor) doOnce(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
  var buf bytes.Buffer
  if body != nil {
    if err := json.NewEncoder(&buf).Encode(body); err != nil {
      return nil, nil, err
    }
  }

  req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
  if err != nil {
    return nil, nil, err
  }
  req.Header.Set("Authorization", "Bearer "+c.apiKey)
  req.Header.Set("Content-Type", "application/json")

  resp, err := c.httpClient.Do(req)
  if err != nil {
    return nil, nil, err
  }

  raw, readErr := io.ReadAll(resp.Body)
  _ = resp.Body.Close()
  if readErr != nil {
    return resp, nil, readErr
  }

  if resp.StatusCode < 200 || resp.StatusCode >= 300 {
    return resp, raw, &openAIHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
  }
  return resp, raw, nil
}

func (c *openAIExtractor) do(ctx context.Context, method, path string, body any, out any) error {
  // exponential backoff: 1s, 2s, 4s, 8s (cap ~10s)
  backoff := 1 * time.Second

  for attempt := 0; attempt <= c.maxRetries; attempt++ {
    if ctx.Err() != nil {
      return ctx.Err()
    }

    resp, raw, err := c.doOnce(ctx, method, path, body)
    if err == nil {
      if out == nil {
        return nil
      }
      if uErr := json.Unmarshal(raw, out); uErr != nil {
        return fmt.Errorf("openai decode error: %w; raw=%s", uErr, string(raw))
      }
      return nil
    }

    if !isRetryableErr(err) {
      return err
    }

    if attempt == c.maxRetries {
      return err
    }

    // Respect Retry-After when present
    sleepFor := backoff
    if resp != nil {
      ra := strings.TrimSpace(resp.Header.Get("Retry-After"))
      if ra != "" {
        if secs, parseErr := strconv.Atoi(ra); parseErr == nil && secs > 0 {
          sleepFor = time.Duration(secs) * time.Second
        }
      }
    }

    if sleepFor > 10*time.Second {
      sleepFor = 10 * time.Second
    }
    sleepFor = jitterSleep(sleepFor)

    c.log.Warn("OpenAI request retrying",
      "path", path,
      "attempt", attempt+1,
      "max_retries", c.maxRetries,
      "sleep", sleepFor.String(),
      "error", err.Error(),
    )

    time.Sleep(sleepFor)
    backoff *= 2
  }

  return fmt.Errorf("unreachable retry loop")
}
