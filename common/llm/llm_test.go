package llm_test

import (
	"context"
	"errors"
	"strings"
	"time"

	"factoryops.app/assistant/common/llm"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("SanitizeName", func() {
	DescribeTable("sanitizes operator names for the name parameter",
		func(input, expected string) {
			Expect(llm.SanitizeName(input)).To(Equal(expected))
		},
		Entry("valid name unchanged", "alice", "alice"),
		Entry("dots replaced with underscore", "alice.smith", "alice_smith"),
		Entry("hyphens preserved", "night-lead", "night-lead"),
		Entry("spaces replaced", "shift lead", "shift_lead"),
		Entry("long name truncated to 64 chars", strings.Repeat("a", 100), strings.Repeat("a", 64)),
		Entry("empty string unchanged", "", ""),
	)
})

type oeeArgs struct {
	StartDate   string  `json:"start_date" jsonschema:"required,description=Start date"`
	EndDate     string  `json:"end_date" jsonschema:"required,description=End date"`
	MachineName *string `json:"machine_name,omitempty" jsonschema:"description=Optional machine"`
}

var _ = Describe("ParseToolArguments", func() {
	It("decodes JSON arguments into the target type", func() {
		args, err := llm.ParseToolArguments[oeeArgs](`{"start_date":"2024-10-15","end_date":"2024-11-14"}`)
		Expect(err).NotTo(HaveOccurred())
		Expect(args.StartDate).To(Equal("2024-10-15"))
		Expect(args.MachineName).To(BeNil())
	})

	It("treats empty arguments as an empty object", func() {
		args, err := llm.ParseToolArguments[oeeArgs]("")
		Expect(err).NotTo(HaveOccurred())
		Expect(args.StartDate).To(BeEmpty())
	})

	It("returns an error for malformed JSON", func() {
		_, err := llm.ParseToolArguments[oeeArgs](`{"start_date":`)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("parse tool arguments"))
	})
})

var _ = Describe("GenerateSchema", func() {
	It("lists required fields and forbids additional properties", func() {
		schema := llm.GenerateSchema[oeeArgs]()
		Expect(schema.Required).To(ConsistOf("start_date", "end_date"))
		Expect(schema.Properties.Len()).To(Equal(3))
	})
})

type slowClient struct {
	delay     time.Duration
	callCount int
}

func (c *slowClient) ChatWithTools(ctx context.Context, _ llm.AgentRequest) (*llm.AgentResponse, error) {
	c.callCount++
	select {
	case <-time.After(c.delay):
		return &llm.AgentResponse{Content: "done"}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *slowClient) Model() string { return "slow" }

var _ = Describe("WithTimeout", func() {
	It("passes through responses that finish in time", func() {
		client := llm.WithTimeout(&slowClient{delay: time.Millisecond}, time.Second)
		resp, err := client.ChatWithTools(context.Background(), llm.AgentRequest{})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Content).To(Equal("done"))
		Expect(client.Model()).To(Equal("slow"))
	})

	It("fails with a deadline error when the call hangs", func() {
		client := llm.WithTimeout(&slowClient{delay: time.Minute}, 20*time.Millisecond)
		_, err := client.ChatWithTools(context.Background(), llm.AgentRequest{})
		Expect(err).To(HaveOccurred())
		Expect(errors.Is(err, context.DeadlineExceeded)).To(BeTrue())
		Expect(llm.IsTimeout(err)).To(BeTrue())
	})

	It("returns the client unchanged for a zero timeout", func() {
		inner := &slowClient{}
		Expect(llm.WithTimeout(inner, 0)).To(BeIdenticalTo(inner))
	})
})

var _ = Describe("IsRetryable", func() {
	It("does not retry cancelled contexts", func() {
		Expect(llm.IsRetryable(context.Background(), context.Canceled)).To(BeFalse())
	})

	It("retries plain network failures", func() {
		Expect(llm.IsRetryable(context.Background(), errors.New("connection reset"))).To(BeTrue())
	})

	It("ignores nil", func() {
		Expect(llm.IsRetryable(context.Background(), nil)).To(BeFalse())
	})
})

var _ = Describe("NewAgentClient", func() {
	It("requires an API key", func() {
		_, err := llm.NewAgentClient(llm.Config{Provider: llm.ProviderOpenAI})
		Expect(err).To(MatchError(ContainSubstring("API key is required")))
	})

	It("rejects unknown providers", func() {
		_, err := llm.NewAgentClient(llm.Config{Provider: "bedrock", APIKey: "k"})
		Expect(err).To(MatchError(ContainSubstring("unsupported LLM provider")))
	})

	It("builds an openai client with the default model", func() {
		client, err := llm.NewAgentClient(llm.Config{APIKey: "k"})
		Expect(err).NotTo(HaveOccurred())
		Expect(client.Model()).To(Equal("gpt-4o"))
	})
})
