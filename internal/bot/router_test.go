/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package bot

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/quagsirus/tgwol/internal/config"
	"github.com/quagsirus/tgwol/internal/device"
	"github.com/quagsirus/tgwol/internal/wol"
)

func nasConfig() map[string]any {
	return map[string]any{
		"token":         "123:abc",
		"mac_separator": ":",
		"devices": map[string]any{
			"nas": map[string]any{
				"mac":         "AA:BB:CC:DD:EE:FF",
				"telegram_id": int64(100),
			},
			"shared": map[string]any{
				"mac":         "01-02-03-04-05-06",
				"telegram_id": int64(0),
			},
			"garbled": map[string]any{
				"mac":         "AA:BB:CC:DD:EE",
				"telegram_id": int64(0),
			},
		},
	}
}

func nasPacket() []byte {
	want := bytes.Repeat([]byte{0xFF}, 6)
	return append(want, bytes.Repeat([]byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}, 16)...)
}

var _ = Describe("Router", func() {
	var (
		ctx         context.Context
		source      config.StaticSource
		authorizer  *countingAuthorizer
		broadcaster *fakeBroadcaster
		router      *Router
		auditMu     sync.Mutex
		auditLines  []string
	)

	BeforeEach(func() {
		ctx = context.Background()
		source = config.StaticSource{Values: nasConfig()}
		auditLines = nil

		auditLog := funcr.New(func(_, args string) {
			auditMu.Lock()
			defer auditMu.Unlock()
			auditLines = append(auditLines, args)
		}, funcr.Options{})

		registry := device.NewRegistry(source, logf.Log.WithName("registry"))
		authorizer = &countingAuthorizer{next: device.NewGuard(registry, auditLog)}
		broadcaster = &fakeBroadcaster{}
		router = NewRouter(authorizer, ':', broadcaster, HelpInfo{
			Name:       "tgwol",
			Version:    "1.2.3",
			Repository: "https://github.com/quagsirus/tgwol",
		}, logf.Log.WithName("router"))
	})

	Context("help", func() {
		It("should list commands with version and repository link", func() {
			reply := router.Handle(ctx, Command{Kind: Help}, 1)

			Expect(reply.HTML).To(BeTrue())
			Expect(reply.Text).To(HavePrefix("These commands are supported:"))
			Expect(reply.Text).To(ContainSubstring("/help - display this text."))
			Expect(reply.Text).To(ContainSubstring("/wake - wake a device."))
			Expect(reply.Text).To(HaveSuffix(`<a href="https://github.com/quagsirus/tgwol">tgwol</a> v1.2.3`))
			Expect(authorizer.Calls()).To(BeZero())
		})

		It("should fall back to plain name and unknown version", func() {
			router = NewRouter(authorizer, ':', broadcaster, HelpInfo{}, logr.Discard())

			reply := router.Handle(ctx, Command{Kind: Help}, 1)
			Expect(reply.Text).To(HaveSuffix("tgwol vUnknown"))
		})
	})

	Context("wake without a device", func() {
		It("should prompt for a device without touching registry or guard", func() {
			before := testutil.ToFloat64(wol.WakeRequestsTotal.WithLabelValues(wol.ResultMissingDevice))

			reply := router.Handle(ctx, Command{Kind: Wake, Argument: ""}, 100)

			Expect(reply.Text).To(Equal("Please specify a device, e.g.\n<code>/wake mydevice</code>"))
			Expect(reply.HTML).To(BeTrue())
			Expect(authorizer.Calls()).To(BeZero())
			Expect(broadcaster.Sent()).To(BeEmpty())
			Expect(testutil.ToFloat64(wol.WakeRequestsTotal.WithLabelValues(wol.ResultMissingDevice))).To(Equal(before + 1))
		})
	})

	Context("wake by the owner", func() {
		It("should broadcast the magic packet and confirm", func() {
			before := testutil.ToFloat64(wol.WakeRequestsTotal.WithLabelValues(wol.ResultSent))

			reply := router.Handle(ctx, Command{Kind: Wake, Argument: "nas"}, 100)

			Expect(reply.Text).To(Equal("Sent magic packet to nas!"))
			Expect(reply.Keyboard).To(Equal([]string{"/wake nas"}))
			sent := broadcaster.Sent()
			Expect(sent).To(HaveLen(1))
			Expect(sent[0][:]).To(Equal(nasPacket()))
			Expect(testutil.ToFloat64(wol.WakeRequestsTotal.WithLabelValues(wol.ResultSent))).To(Equal(before + 1))
		})

		It("should send one packet per command", func() {
			for i := 0; i < 3; i++ {
				router.Handle(ctx, Command{Kind: Wake, Argument: "nas"}, 100)
			}
			Expect(broadcaster.Sent()).To(HaveLen(3))
			Expect(authorizer.Calls()).To(Equal(3))
		})
	})

	Context("wake by another user", func() {
		It("should refuse, send nothing and write an audit entry", func() {
			before := testutil.ToFloat64(wol.WakeRequestsTotal.WithLabelValues(wol.ResultUnauthorized))

			reply := router.Handle(ctx, Command{Kind: Wake, Argument: "nas"}, 200)

			Expect(reply.Text).To(Equal("You (200) are not authorized to wake nas."))
			Expect(reply.Keyboard).To(BeEmpty())
			Expect(broadcaster.Sent()).To(BeEmpty())
			Expect(testutil.ToFloat64(wol.WakeRequestsTotal.WithLabelValues(wol.ResultUnauthorized))).To(Equal(before + 1))

			auditMu.Lock()
			defer auditMu.Unlock()
			Expect(auditLines).To(HaveLen(1))
			Expect(auditLines[0]).To(ContainSubstring(`"sender"=200`))
			Expect(auditLines[0]).To(ContainSubstring(`"device"="nas"`))
		})
	})

	Context("wake an open device", func() {
		It("should accept any sender", func() {
			router = NewRouter(authorizer, '-', broadcaster, HelpInfo{}, logr.Discard())

			reply := router.Handle(ctx, Command{Kind: Wake, Argument: "shared"}, 987654321)

			Expect(reply.Text).To(Equal("Sent magic packet to shared!"))
			Expect(broadcaster.Sent()).To(HaveLen(1))
			Expect(broadcaster.Sent()[0][6:12]).To(Equal([]byte{1, 2, 3, 4, 5, 6}))
		})
	})

	Context("wake a device that is not correctly configured", func() {
		DescribeTable("should give the same answer and send nothing",
			func(values map[string]any, name string) {
				source = config.StaticSource{Values: values}
				registry := device.NewRegistry(source, logr.Discard())
				router = NewRouter(device.NewGuard(registry, logr.Discard()), ':', broadcaster, HelpInfo{}, logr.Discard())

				reply := router.Handle(ctx, Command{Kind: Wake, Argument: name}, 100)

				Expect(reply.Text).To(Equal(fmt.Sprintf(`Device "%s" is not correctly configured.`, name)))
				Expect(broadcaster.Sent()).To(BeEmpty())
			},
			Entry("unknown device", nasConfig(), "printer"),
			Entry("mac unset", map[string]any{
				"devices": map[string]any{"nas": map[string]any{"telegram_id": int64(100)}},
			}, "nas"),
			Entry("owner unset", map[string]any{
				"devices": map[string]any{"nas": map[string]any{"mac": "AA:BB:CC:DD:EE:FF"}},
			}, "nas"),
			Entry("malformed mac", nasConfig(), "garbled"),
			Entry("mac using another separator", nasConfig(), "shared"),
			Entry("name with a quote", nasConfig(), `my"pc`),
		)

		It("should print the device name as typed", func() {
			reply := router.Handle(ctx, Command{Kind: Wake, Argument: `my"pc`}, 100)
			Expect(reply.Text).To(Equal(`Device "my"pc" is not correctly configured.`))
		})

		It("should answer the same when the source cannot be read", func() {
			registry := device.NewRegistry(config.StaticSource{Err: fmt.Errorf("gone")}, logr.Discard())
			router = NewRouter(device.NewGuard(registry, logr.Discard()), ':', broadcaster, HelpInfo{}, logr.Discard())

			reply := router.Handle(ctx, Command{Kind: Wake, Argument: "nas"}, 100)
			Expect(reply.Text).To(Equal(`Device "nas" is not correctly configured.`))
		})
	})

	Context("network failure", func() {
		It("should report a generic problem", func() {
			broadcaster.err = fmt.Errorf("%w: sendto: permission denied", wol.ErrNetwork)
			before := testutil.ToFloat64(wol.WakeRequestsTotal.WithLabelValues(wol.ResultSendFailed))

			reply := router.Handle(ctx, Command{Kind: Wake, Argument: "nas"}, 100)

			Expect(reply.Text).To(Equal("There was a problem waking nas."))
			Expect(reply.Text).NotTo(ContainSubstring("permission"))
			Expect(testutil.ToFloat64(wol.WakeRequestsTotal.WithLabelValues(wol.ResultSendFailed))).To(Equal(before + 1))
		})
	})

	Context("concurrent commands", func() {
		It("should handle each command independently", func() {
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func(sender int64) {
					defer wg.Done()
					defer GinkgoRecover()
					router.Handle(ctx, Command{Kind: Wake, Argument: "nas"}, sender)
				}(int64(100 + i%2*100))
			}
			wg.Wait()

			Expect(broadcaster.Sent()).To(HaveLen(10))
		})
	})

	Context("with the real sender", func() {
		It("should put the magic packet on the wire", func() {
			conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
			Expect(err).NotTo(HaveOccurred())
			defer conn.Close()

			sender, err := wol.NewSender(wol.SenderOptions{
				BroadcastAddress: "127.0.0.1",
				Port:             conn.LocalAddr().(*net.UDPAddr).Port,
			}, logr.Discard())
			Expect(err).NotTo(HaveOccurred())

			router = NewRouter(authorizer, ':', sender, HelpInfo{}, logr.Discard())
			reply := router.Handle(ctx, Command{Kind: Wake, Argument: "nas"}, 100)
			Expect(reply.Text).To(Equal("Sent magic packet to nas!"))

			Expect(conn.SetReadDeadline(time.Now().Add(2 * time.Second))).To(Succeed())
			buffer := make([]byte, 1024)
			n, _, err := conn.ReadFromUDP(buffer)
			Expect(err).NotTo(HaveOccurred())
			Expect(buffer[:n]).To(Equal(nasPacket()))
		})
	})
})

var _ = Describe("ParseCommand", func() {
	DescribeTable("should map command names",
		func(name, args string, want Command, wantOK bool) {
			got, ok := ParseCommand(name, args)
			Expect(ok).To(Equal(wantOK))
			Expect(got).To(Equal(want))
		},
		Entry("help", "help", "", Command{Kind: Help}, true),
		Entry("help ignores arguments", "help", "me", Command{Kind: Help, Argument: "me"}, true),
		Entry("wake with device", "wake", "nas", Command{Kind: Wake, Argument: "nas"}, true),
		Entry("wake trims spaces", "wake", "  nas ", Command{Kind: Wake, Argument: "nas"}, true),
		Entry("wake without device", "wake", "", Command{Kind: Wake}, true),
		Entry("upper case name", "WAKE", "nas", Command{Kind: Wake, Argument: "nas"}, true),
		Entry("unknown", "start", "", Command{}, false),
	)

	It("should describe every command", func() {
		Expect(strings.Split(Descriptions(), "\n")).To(Equal([]string{
			"These commands are supported:",
			"/help - display this text.",
			"/wake - wake a device.",
		}))
	})
})
