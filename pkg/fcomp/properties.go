package fcomp

// UseProperties declares properties read and written with Element.Property
// and Element.SetProperty. Each is backed by the state key of the same name.
func UseProperties(names ...string) Extension {
	return func(factorize FactorizeRegistrar, _ ConstructRegistrar) {
		factorize(func(b *Builder, _ Renderer) error {
			b.DefineProperty(names...)
			return nil
		})
	}
}
