package network

import (
	"net"

	"github.com/bujia-iot/card-sensor-client/pkg/errors"
)

// AddressFilter 房间号地址筛选条件
type AddressFilter struct {
	Prefix   *net.IPNet // 为空时不限制前缀
	IPv6Only bool
}

// InterfaceAddrs 枚举本机地址；name 为空时枚举全部接口
func InterfaceAddrs(name string) ([]net.Addr, error) {
	if name == "" {
		return net.InterfaceAddrs()
	}
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil, err
	}
	return iface.Addrs()
}

// SelectRoomAddress 选择用于推导房间号的全局单播地址
// 枚举顺序中最后一个满足条件的地址生效，与节点固件的覆盖行为一致
// 调用方需保证地址已脱离暂定(tentative)状态
func SelectRoomAddress(addrs []net.Addr, filter AddressFilter) (net.IP, error) {
	var selected net.IP
	for _, addr := range addrs {
		ip := addrIP(addr)
		if ip == nil || !qualifies(ip, filter) {
			continue
		}
		selected = ip
	}

	if selected == nil {
		return nil, errors.New(errors.ErrNoQualifyingAddress, "没有可用的全局单播地址")
	}
	return selected, nil
}

// LastOctet 地址最后一个字节
func LastOctet(ip net.IP) uint8 {
	if v4 := ip.To4(); v4 != nil {
		return v4[len(v4)-1]
	}
	return ip[len(ip)-1]
}

func qualifies(ip net.IP, filter AddressFilter) bool {
	if !ip.IsGlobalUnicast() {
		return false
	}
	if filter.IPv6Only && ip.To4() != nil {
		return false
	}
	if filter.Prefix != nil && !filter.Prefix.Contains(ip) {
		return false
	}
	return true
}

func addrIP(addr net.Addr) net.IP {
	switch a := addr.(type) {
	case *net.IPNet:
		return a.IP
	case *net.IPAddr:
		return a.IP
	default:
		return nil
	}
}
