package main

import (
	"fmt"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pcapsock/go-pcap"
)

var (
	debug       bool
	list        bool
	iface       string
	snaplen     int32
	promiscuous bool
)

func main() {
	_ = rootCmd.Execute()
}

var rootCmd = &cobra.Command{
	Use:   "pcap",
	Short: "Capture packets from a given interface, or list capturable interfaces",
	Long:  `Capture packets from a given interface, or list capturable interfaces`,
	Run: func(cmd *cobra.Command, args []string) {
		if debug {
			log.SetLevel(log.DebugLevel)
		}
		if list {
			listDevices()
			return
		}

		fmt.Printf("capturing from interface %s\n", iface)
		handle, err := pcap.OpenLive(iface, snaplen, promiscuous)
		if err == pcap.ErrPromiscNotSupported {
			log.Warnf("promiscuous mode not supported on %s, capturing without it", iface)
		} else if err != nil {
			log.Fatal(err)
		}
		defer handle.Close()

		packetSource := gopacket.NewPacketSource(handle, layers.LinkType(handle.LinkType()))
		var count int
		for packet := range packetSource.Packets() {
			processPacket(packet, count)
			count++
		}
	},
}

func init() {
	rootCmd.Flags().BoolVar(&debug, "debug", false, "print lots of debugging messages")
	rootCmd.Flags().BoolVar(&list, "list", false, "list capturable interfaces and their connection status, then exit")
	rootCmd.Flags().StringVarP(&iface, "interface", "i", "", "interface from which to capture")
	rootCmd.Flags().Int32Var(&snaplen, "snaplen", 1600, "maximum bytes to keep of each packet; values out of range use the maximum")
	rootCmd.Flags().BoolVarP(&promiscuous, "promiscuous", "p", false, "capture packets not addressed to this station too")
}

func listDevices() {
	devs, err := pcap.FindAllDevs()
	if err != nil {
		log.Fatal(err)
	}
	for _, d := range devs {
		status := "unknown"
		switch d.ConnectionStatus {
		case pcap.ConnectionStatusConnected:
			status = "connected"
		case pcap.ConnectionStatusDisconnected:
			status = "disconnected"
		case pcap.ConnectionStatusNotApplicable:
			status = "n/a"
		}
		fmt.Printf("%-16s loopback=%-5v link=%s\n", d.Name, d.Loopback, status)
	}
}

func processPacket(packet gopacket.Packet, count int) {
	if ipLayer := packet.Layer(layers.LayerTypeIPv4); ipLayer != nil {
		ip, _ := ipLayer.(*layers.IPv4)
		fmt.Printf("%d: IP packet from src %s to dst %s\n", count, ip.SrcIP, ip.DstIP)
	}
	if ipLayer := packet.Layer(layers.LayerTypeIPv6); ipLayer != nil {
		ip, _ := ipLayer.(*layers.IPv6)
		fmt.Printf("%d: IP packet from src %s to dst %s\n", count, ip.SrcIP, ip.DstIP)
	}
	if udpLayer := packet.Layer(layers.LayerTypeUDP); udpLayer != nil {
		udp, _ := udpLayer.(*layers.UDP)
		fmt.Printf("%d: UDP packet from src port %d to dst port %d\n", count, udp.SrcPort, udp.DstPort)
	}
	if tcpLayer := packet.Layer(layers.LayerTypeTCP); tcpLayer != nil {
		tcp, _ := tcpLayer.(*layers.TCP)
		fmt.Printf("%d: TCP packet from src port %d to dst port %d\n", count, tcp.SrcPort, tcp.DstPort)
	}
	fmt.Printf("%d: packet size %d original %d\n", count, packet.Metadata().CaptureLength, packet.Metadata().Length)
}
