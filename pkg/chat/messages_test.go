package chat_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/parley-chat/parley/pkg/chat"
)

func TestChat(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Chat Suite")
}

var _ = Describe("Message", func() {
	Describe("NewPendingMessage", func() {
		It("should create a pending message with trimmed query", func() {
			msg := chat.NewPendingMessage("  Hello World  ")

			Expect(msg.Query).To(Equal("Hello World"))
			Expect(msg.ID).To(BeEmpty())
			Expect(msg.Answer).To(BeEmpty())
			Expect(msg.Status).To(Equal(chat.StatusPending))
			Expect(msg.Terminal()).To(BeFalse())
		})
	})

	Describe("NewGreetingMessage", func() {
		It("should create a finalized answer-only message", func() {
			msg := chat.NewGreetingMessage("Hello! How can I help you today?")

			Expect(msg.Query).To(BeEmpty())
			Expect(msg.Answer).To(Equal("Hello! How can I help you today?"))
			Expect(msg.Terminal()).To(BeTrue())
		})
	})

	Describe("AppendAnswer", func() {
		It("should accumulate fragments and move to streaming", func() {
			msg := chat.NewPendingMessage("hi")
			msg.AppendAnswer("He")
			msg.AppendAnswer("llo")

			Expect(msg.Answer).To(Equal("Hello"))
			Expect(msg.Status).To(Equal(chat.StatusStreaming))
		})
	})

	Describe("ReplaceAnswer", func() {
		It("should overwrite the answer wholesale without touching status", func() {
			msg := chat.NewPendingMessage("hi")
			msg.AppendAnswer("draft")
			msg.Finalize()

			msg.ReplaceAnswer("final text")

			Expect(msg.Answer).To(Equal("final text"))
			Expect(msg.Status).To(Equal(chat.StatusFinalized))
		})
	})

	Describe("Fail", func() {
		It("should record the error text and mark the message errored", func() {
			msg := chat.NewPendingMessage("hi")
			msg.Fail("something broke")

			Expect(msg.Answer).To(Equal("something broke"))
			Expect(msg.Status).To(Equal(chat.StatusErrored))
			Expect(msg.Terminal()).To(BeTrue())
		})
	})
})

var _ = Describe("Conversation", func() {
	var conv *chat.Conversation

	BeforeEach(func() {
		conv = chat.NewConversation("Hello! How can I help you today?")
	})

	It("should start with only the greeting", func() {
		Expect(conv.MessageCount()).To(Equal(1))
		Expect(conv.ID).To(BeEmpty())
		Expect(conv.AwaitingResponse).To(BeFalse())
		Expect(conv.Active()).To(BeNil())
	})

	Describe("AdoptID", func() {
		It("should pin the first non-empty id for the session", func() {
			conv.AdoptID("")
			Expect(conv.ID).To(BeEmpty())

			conv.AdoptID("c1")
			conv.AdoptID("c2")
			Expect(conv.ID).To(Equal("c1"))
		})
	})

	Describe("Active", func() {
		It("should return the one non-terminal message", func() {
			msg := chat.NewPendingMessage("hi")
			conv.Append(msg)

			Expect(conv.Active()).To(Equal(msg))

			msg.Finalize()
			Expect(conv.Active()).To(BeNil())
		})
	})

	Describe("FindByID", func() {
		It("should locate messages by server-assigned id", func() {
			msg := chat.NewPendingMessage("hi")
			msg.ID = "m1"
			conv.Append(msg)

			Expect(conv.FindByID("m1")).To(Equal(msg))
			Expect(conv.FindByID("m2")).To(BeNil())
			Expect(conv.FindByID("")).To(BeNil())
		})
	})

	Describe("LastRatable", func() {
		It("should skip the greeting and streaming messages", func() {
			_, ok := conv.LastRatable()
			Expect(ok).To(BeFalse())

			done := chat.NewPendingMessage("first")
			done.Finalize()
			conv.Append(done)

			active := chat.NewPendingMessage("second")
			conv.Append(active)

			msg, ok := conv.LastRatable()
			Expect(ok).To(BeTrue())
			Expect(msg).To(Equal(done))
		})
	})

	Describe("Reset", func() {
		It("should return to a single greeting and unset the id", func() {
			conv.AdoptID("c1")
			conv.Append(chat.NewPendingMessage("hi"))
			conv.AwaitingResponse = true

			conv.Reset("fresh greeting")

			Expect(conv.MessageCount()).To(Equal(1))
			Expect(conv.Messages[0].Answer).To(Equal("fresh greeting"))
			Expect(conv.ID).To(BeEmpty())
			Expect(conv.AwaitingResponse).To(BeFalse())
		})
	})
})
