package upi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ParseName(t *testing.T) {
	module, function, err := ParseName("net.get_iface_hw_addr")

	require.NoError(t, err)
	assert.Equal(t, "net", module)
	assert.Equal(t, "get_iface_hw_addr", function)
}

func Test_ParseNameMalformed(t *testing.T) {
	for _, name := range []string{"", "net", ".fn", "net.", "net.a.b", "a/b.c", "net.a/b"} {
		t.Run(name, func(t *testing.T) {
			module, function, err := ParseName(name)

			require.ErrorIs(t, err, ErrInvalidArgument)
			assert.Equal(t, "", module)
			assert.Equal(t, "", function)
		})
	}
}

func Test_FullMethod(t *testing.T) {
	method, err := FullMethod("net.get_iface_hw_addr")

	require.NoError(t, err)
	assert.Equal(t, "/upi.net/get_iface_hw_addr", method)
}

func Test_NameFromService(t *testing.T) {
	name, err := NameFromService("upi.net", "get_iface_hw_addr")
	require.NoError(t, err)
	assert.Equal(t, "net.get_iface_hw_addr", name)

	_, err = NameFromService("routepb.Route", "InsertRoute")
	require.ErrorIs(t, err, ErrUnknownFunction)
}

func Test_SplitFullMethod(t *testing.T) {
	service, method, err := SplitFullMethod("/upi.net/get_iface_hw_addr")
	require.NoError(t, err)
	assert.Equal(t, "upi.net", service)
	assert.Equal(t, "get_iface_hw_addr", method)

	name, err := NameFromService(service, method)
	require.NoError(t, err)
	assert.Equal(t, "net.get_iface_hw_addr", name)
}

func Test_SplitFullMethodMalformed(t *testing.T) {
	for _, fullMethod := range []string{
		"upi.net/get_iface_hw_addr",
		"/upi.net",
		"/upi.net/",
		"//get_iface_hw_addr",
		"/a/b/c",
	} {
		service, method, err := SplitFullMethod(fullMethod)
		require.ErrorIs(t, err, ErrInvalidArgument, fullMethod)
		assert.Empty(t, service)
		assert.Empty(t, method)
	}
}
