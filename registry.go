// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package graphwire

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

type dispatchMode uint8

const (
	modeSerializer dispatchMode = iota
	modeObject
	modeException
	modeKeyed
	modeFallback
)

// Dispatch paths, reported to logs and metrics
const (
	pathBuiltin     = "builtin"
	pathRegistered  = "registered"
	pathGeneric     = "generic"
	pathExternal    = "external"
	pathKeyed       = "keyed"
	pathException   = "exception"
	pathSynthesized = "synthesized"
	pathFallback    = "fallback"
)

// typeInfo is an immutable registry entry.
type typeInfo struct {
	Type       reflect.Type
	Key        string
	Serializer Serializer
	mode       dispatchMode
	path       string
	tracked    bool
	keyed      KeyedSerializer
	generic    *GenericDefinition
	args       []reflect.Type
}

// GenericDefinition is an open generic type. Closed instantiations that Match
// get a concrete entry from Factory on first use, cached thereafter.
//
// Go cannot instantiate a generic type at run time, so a reader resolves an
// instantiation only after the same instantiation was registered with
// RegisterType or written through the same Registry.
type GenericDefinition struct {
	Name      string
	Match     func(t reflect.Type) bool
	Arguments func(t reflect.Type) []reflect.Type
	Factory   func(r *Registry, t reflect.Type) (Serializer, error)
}

type chainSet struct {
	generics []*GenericDefinition
	external []ExternalSerializer
	keyed    []KeyedSerializer
	byKey    map[byte]KeyedSerializer
	fallback FallbackSerializer
}

// Registry maps types to serializers and owns the process-wide caches:
// entries, the key resolution cache, generic instantiations and the chains.
// Registration takes a lock; lookups are lock-free.
type Registry struct {
	mu           sync.Mutex
	infos        sync.Map // reflect.Type -> *typeInfo
	types        sync.Map // canonical key -> reflect.Type
	aliasOf      sync.Map // canonical key -> alias
	canonical    sync.Map // alias -> canonical key
	instances    sync.Map // instantiation key -> reflect.Type
	trivial      sync.Map // reflect.Type -> bool
	immutable    sync.Map // reflect.Type -> struct{}
	chains       atomic.Pointer[chainSet]
	interfaces   []reflect.Type
	implementers map[reflect.Type][]reflect.Type
	group        singleflight.Group
	logger       logrus.FieldLogger
}

// NewRegistry creates a Registry holding the built-in types. A nil logger
// means logrus.StandardLogger().
func NewRegistry(logger logrus.FieldLogger) *Registry {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	r := &Registry{
		implementers: make(map[reflect.Type][]reflect.Type),
		logger:       logger,
	}
	r.chains.Store(&chainSet{byKey: map[byte]KeyedSerializer{}})
	for _, t := range builtinTypes {
		var s Serializer
		switch {
		case t.Kind() == reflect.Interface:
			continue
		case t == emptyStructType:
			r.infos.Store(t, &typeInfo{Type: t, Key: t.String(), Serializer: objectSerializer{}, mode: modeObject, path: pathBuiltin})
			continue
		case t == timeType:
			s = timeSerializer{}
		case t == uuidType:
			s = uuidSerializer{}
		case t.Kind() == reflect.String:
			s = stringSerializer{}
		default:
			s = primitiveSerializer{kind: t.Kind()}
		}
		r.infos.Store(t, &typeInfo{
			Type:       t,
			Key:        canonicalKey(t),
			Serializer: s,
			path:       pathBuiltin,
			tracked:    t.Kind() == reflect.String,
		})
	}
	r.addGeneric(optionalDefinition)
	// The error values the standard library hands out most often.
	for _, err := range []error{errors.New(""), fmt.Errorf("%w", errors.New(""))} {
		r.learn(reflect.TypeOf(err), map[reflect.Type]bool{})
	}
	r.learn(reflect.TypeOf(&Exception{}), map[reflect.Type]bool{})
	return r
}

// Logger returns the logger the registry and its contexts report to.
func (r *Registry) Logger() logrus.FieldLogger { return r.logger }

// typeOf accepts either a reflect.Type or an instance of the type.
func typeOf(type_ any) reflect.Type {
	if t, ok := type_.(reflect.Type); ok {
		return t
	}
	return reflect.TypeOf(type_)
}

// ============================================================================
// Type keys
// ============================================================================

// canonicalKey spells a type with full package paths.
func canonicalKey(t reflect.Type) string {
	if t.Name() != "" {
		if t.PkgPath() == "" {
			return t.Name()
		}
		return t.PkgPath() + "." + t.Name()
	}
	switch t.Kind() {
	case reflect.Pointer:
		return "*" + canonicalKey(t.Elem())
	case reflect.Slice:
		return "[]" + canonicalKey(t.Elem())
	case reflect.Array:
		return "[" + strconv.Itoa(t.Len()) + "]" + canonicalKey(t.Elem())
	case reflect.Map:
		return "map[" + canonicalKey(t.Key()) + "]" + canonicalKey(t.Elem())
	default:
		return t.String()
	}
}

// TypeKey returns the wire key of t: its alias when one is registered,
// otherwise its canonical spelling.
func (r *Registry) TypeKey(t reflect.Type) string {
	if t.Kind() == reflect.Pointer && t.Name() == "" {
		return "*" + r.TypeKey(t.Elem())
	}
	key := canonicalKey(t)
	if alias, ok := r.aliasOf.Load(key); ok {
		return alias.(string)
	}
	return key
}

// typeByKey resolves a wire key through the resolution cache.
func (r *Registry) typeByKey(key string) (reflect.Type, error) {
	if t, ok := r.types.Load(key); ok {
		return t.(reflect.Type), nil
	}
	if c, ok := r.canonical.Load(key); ok {
		if t, ok := r.types.Load(c); ok {
			return t.(reflect.Type), nil
		}
	}
	// Exception keys name pointer types, which are not cached themselves.
	if elem, ok := strings.CutPrefix(key, "*"); ok {
		if t, err := r.typeByKey(elem); err == nil {
			return reflect.PointerTo(t), nil
		}
	}
	return nil, &UnresolvedTypeError{Key: key}
}

func instanceKey(def *GenericDefinition, args []reflect.Type) string {
	var sb strings.Builder
	sb.WriteString(def.Name)
	sb.WriteByte('[')
	for i, a := range args {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(canonicalKey(a))
	}
	sb.WriteByte(']')
	return sb.String()
}

func (r *Registry) instance(name string, args []reflect.Type) (reflect.Type, error) {
	key := instanceKey(&GenericDefinition{Name: name}, args)
	if t, ok := r.instances.Load(key); ok {
		return t.(reflect.Type), nil
	}
	return nil, &UnresolvedTypeError{Key: key}
}

// learn makes t and every named type reachable from it resolvable by key.
func (r *Registry) learn(t reflect.Type, seen map[reflect.Type]bool) {
	if seen[t] {
		return
	}
	seen[t] = true
	if _, ok := builtinTokens[t]; ok {
		return
	}
	if t.Name() != "" && t.PkgPath() != "" {
		r.types.LoadOrStore(canonicalKey(t), t)
	}
	for _, def := range r.chains.Load().generics {
		if def.Match(t) {
			args := def.Arguments(t)
			r.instances.LoadOrStore(instanceKey(def, args), t)
			for _, a := range args {
				r.learn(a, seen)
			}
			return
		}
	}
	switch t.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Array:
		r.learn(t.Elem(), seen)
	case reflect.Map:
		r.learn(t.Key(), seen)
		r.learn(t.Elem(), seen)
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			r.learn(t.Field(i).Type, seen)
		}
	}
}

// ============================================================================
// Registration
// ============================================================================

// Register binds a copy/serialize/deserialize routine triple to type_, which
// is either a reflect.Type or an instance. Registering again replaces the
// entry. A nil copier shares values instead of copying them.
func (r *Registry) Register(type_ any, copier CopyFunc, serializer WriteFunc, deserializer ReadFunc) error {
	if serializer == nil || deserializer == nil {
		return fmt.Errorf("graphwire: register %v: serializer and deserializer are required", typeOf(type_))
	}
	return r.RegisterSerializer(type_, funcSerializer{copier: copier, writer: serializer, reader: deserializer})
}

// RegisterSerializer binds s to type_.
func (r *Registry) RegisterSerializer(type_ any, s Serializer) error {
	t := typeOf(type_)
	if t == nil || t.Kind() == reflect.Interface {
		return fmt.Errorf("graphwire: cannot register a serializer for %v", t)
	}
	info := &typeInfo{
		Type:       t,
		Key:        r.TypeKey(t),
		Serializer: s,
		path:       pathRegistered,
		tracked:    isTrackedKind(t.Kind()),
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.bindKeyLocked(t); err != nil {
		return err
	}
	r.infos.Store(t, info)
	r.dropDerivedLocked()
	r.relateLocked(t)
	r.logger.WithField("type", info.Key).Debug("graphwire: registered serializer")
	return nil
}

// RegisterType makes type_ and the named types reachable from its fields and
// elements resolvable by key, without binding any behavior. This is the
// known-type feed a reader needs for every named type it expects to receive.
func (r *Registry) RegisterType(type_ any) error {
	t := typeOf(type_)
	if t == nil {
		return fmt.Errorf("graphwire: cannot register a nil type")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.Name() != "" && t.PkgPath() != "" {
		if err := r.bindKeyLocked(t); err != nil {
			return err
		}
	}
	if t.Kind() == reflect.Interface {
		r.addInterfaceLocked(t)
		return nil
	}
	r.relateLocked(t)
	return nil
}

// RegisterName adds a known-type name mapping: type_ is written as alias and
// alias resolves back to type_.
func (r *Registry) RegisterName(type_ any, alias string) error {
	t := typeOf(type_)
	key := canonicalKey(t)
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.canonical.Load(alias); ok && prev.(string) != key {
		return fmt.Errorf("%w: %q names %s", ErrKeyConflict, alias, prev)
	}
	if err := r.bindKeyLocked(t); err != nil {
		return err
	}
	r.canonical.Store(alias, key)
	r.aliasOf.Store(key, alias)
	return nil
}

// RegisterAlias maps alias to a canonical key whose type may not be known yet.
func (r *Registry) RegisterAlias(alias, canonical string) {
	r.canonical.Store(alias, canonical)
	r.aliasOf.Store(canonical, alias)
}

// RegisterImmutable marks type_ as safe to share instead of deep copying.
func (r *Registry) RegisterImmutable(type_ any) {
	t := typeOf(type_)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.immutable.Store(t, struct{}{})
	r.dropDerivedLocked()
}

// RegisterGeneric adds an open generic definition.
func (r *Registry) RegisterGeneric(def GenericDefinition) error {
	if def.Name == "" || def.Match == nil || def.Arguments == nil || def.Factory == nil {
		return fmt.Errorf("graphwire: generic definition %q is incomplete", def.Name)
	}
	r.addGeneric(&def)
	return nil
}

// Implementations returns the registered concrete types implementing iface.
func (r *Registry) Implementations(iface reflect.Type) []reflect.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]reflect.Type(nil), r.implementers[iface]...)
}

func (r *Registry) bindKeyLocked(t reflect.Type) error {
	key := canonicalKey(t)
	prev, loaded := r.types.LoadOrStore(key, t)
	if loaded && prev.(reflect.Type) != t {
		return fmt.Errorf("%w: %q is bound to another %v", ErrKeyConflict, key, prev)
	}
	return nil
}

// relateLocked registers, without behavior, what comes with t: the named
// types it reaches and its place under every known interface.
func (r *Registry) relateLocked(t reflect.Type) {
	r.learn(t, map[reflect.Type]bool{})
	for _, iface := range r.interfaces {
		r.addImplementerLocked(iface, t)
	}
}

func (r *Registry) addInterfaceLocked(iface reflect.Type) {
	for _, known := range r.interfaces {
		if known == iface {
			return
		}
	}
	r.interfaces = append(r.interfaces, iface)
	r.infos.Range(func(k, _ any) bool {
		r.addImplementerLocked(iface, k.(reflect.Type))
		return true
	})
}

func (r *Registry) addImplementerLocked(iface, t reflect.Type) {
	if t.Kind() == reflect.Interface || !(t.Implements(iface) || reflect.PointerTo(t).Implements(iface)) {
		return
	}
	for _, known := range r.implementers[iface] {
		if known == t {
			return
		}
	}
	r.implementers[iface] = append(r.implementers[iface], t)
}

func (r *Registry) updateChains(update func(c *chainSet)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	old := r.chains.Load()
	next := &chainSet{
		generics: append([]*GenericDefinition(nil), old.generics...),
		external: append([]ExternalSerializer(nil), old.external...),
		keyed:    append([]KeyedSerializer(nil), old.keyed...),
		byKey:    make(map[byte]KeyedSerializer, len(old.byKey)),
		fallback: old.fallback,
	}
	for k, v := range old.byKey {
		next.byKey[k] = v
	}
	update(next)
	r.chains.Store(next)
}

func (r *Registry) addGeneric(def *GenericDefinition) {
	r.updateChains(func(c *chainSet) { c.generics = append(c.generics, def) })
}

// AddExternal appends serializers to the external chain. Types already
// dispatched keep their cached entry.
func (r *Registry) AddExternal(serializers ...ExternalSerializer) {
	r.updateChains(func(c *chainSet) { c.external = append(c.external, serializers...) })
}

// AddKeyed appends serializers to the keyed chain. Keys must be unique.
func (r *Registry) AddKeyed(serializers ...KeyedSerializer) error {
	var err error
	r.updateChains(func(c *chainSet) {
		added := make(map[byte]KeyedSerializer, len(serializers))
		for _, s := range serializers {
			prev, ok := c.byKey[s.Key()]
			if !ok {
				prev, ok = added[s.Key()]
			}
			if ok {
				err = fmt.Errorf("%w: keyed serializer key %d already used by %T", ErrKeyConflict, s.Key(), prev)
				return
			}
			added[s.Key()] = s
		}
		for _, s := range serializers {
			c.keyed = append(c.keyed, s)
			c.byKey[s.Key()] = s
		}
	})
	return err
}

// SetFallback replaces the serializer of last resort; nil disables it.
func (r *Registry) SetFallback(f FallbackSerializer) {
	r.updateChains(func(c *chainSet) { c.fallback = f })
}

func (r *Registry) keyedByKey(key byte) (KeyedSerializer, bool) {
	s, ok := r.chains.Load().byKey[key]
	return s, ok
}

func (r *Registry) fallback() FallbackSerializer {
	return r.chains.Load().fallback
}

// ============================================================================
// Dispatch
// ============================================================================

// getTypeInfo returns the entry for t, resolving and caching it on first use.
func (r *Registry) getTypeInfo(t reflect.Type) (*typeInfo, error) {
	if v, ok := r.infos.Load(t); ok {
		return v.(*typeInfo), nil
	}
	// Locally declared types can share a canonical key, the type pointer cannot.
	flight := fmt.Sprintf("%s@%p", canonicalKey(t), t)
	v, err, _ := r.group.Do(flight, func() (any, error) {
		if v, ok := r.infos.Load(t); ok {
			return v, nil
		}
		info, err := r.resolve(t)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		actual, _ := r.infos.LoadOrStore(t, info)
		r.mu.Unlock()
		return actual, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*typeInfo), nil
}

// resolve applies the dispatch precedence to a type with no cached entry.
func (r *Registry) resolve(t reflect.Type) (*typeInfo, error) {
	if t.Kind() == reflect.Interface {
		return nil, &UnsupportedTypeError{Type: t, Reason: "interface types carry no payload"}
	}
	info := &typeInfo{Type: t, Key: r.TypeKey(t), tracked: isTrackedKind(t.Kind())}
	r.learn(t, map[reflect.Type]bool{})
	chains := r.chains.Load()
	log := r.logger.WithField("type", info.Key)

	for _, def := range chains.generics {
		if !def.Match(t) {
			continue
		}
		s, err := def.Factory(r, t)
		if err != nil {
			return nil, &UnsupportedTypeError{Type: t, Reason: "generic " + def.Name, Err: err}
		}
		info.Serializer, info.path = s, pathGeneric
		info.generic, info.args = def, def.Arguments(t)
		log.Debug("graphwire: synthesized generic instantiation")
		return info, nil
	}
	for _, ext := range chains.external {
		if ext.IsSupportedType(t) {
			info.Serializer, info.path = ext, pathExternal
			log.WithField("serializer", fmt.Sprintf("%T", ext)).Debug("graphwire: external serializer selected")
			return info, nil
		}
	}
	for _, k := range chains.keyed {
		if k.IsSupportedType(t) {
			info.Serializer, info.path, info.mode, info.keyed = escapeSerializer{codec: k}, pathKeyed, modeKeyed, k
			log.WithField("key", k.Key()).Debug("graphwire: keyed serializer selected")
			return info, nil
		}
	}

	var cause error
	kind := t.Kind()
	switch {
	case t.Implements(errorType):
		info.Serializer, info.path, info.mode = newExceptionSerializer(r, t), pathException, modeException
	case t == emptyStructType:
		info.Serializer, info.path, info.mode = objectSerializer{}, pathBuiltin, modeObject
	case isIntegerKind(kind):
		info.Serializer, info.path = enumSerializer{kind: kind}, pathBuiltin
	case kind == reflect.String:
		info.Serializer, info.path = stringSerializer{}, pathBuiltin
	case primitiveSize(kind) > 0:
		info.Serializer, info.path = primitiveSerializer{kind: kind}, pathBuiltin
	case kind == reflect.Slice:
		info.Serializer, info.path = newSliceSerializer(r, t), pathBuiltin
	case kind == reflect.Array:
		info.Serializer, info.path = newArraySerializer(r, t), pathBuiltin
	case kind == reflect.Map:
		info.Serializer, info.path = newMapSerializer(t), pathBuiltin
	case kind == reflect.Pointer:
		info.Serializer, info.path = newPointerSerializer(t), pathBuiltin
	case kind == reflect.Struct:
		s, err := newStructSerializer(r, t)
		if err == nil {
			info.Serializer, info.path = s, pathSynthesized
			log.WithField("fields", len(s.fields)).Debug("graphwire: synthesized struct serializer")
			break
		}
		cause = err
	default:
		cause = &UnsupportedTypeError{Type: t, Reason: "kind " + kind.String() + " cannot cross the wire"}
	}
	if info.Serializer != nil {
		return info, nil
	}
	if chains.fallback == nil {
		return nil, cause
	}
	info.Serializer, info.path, info.mode = escapeSerializer{codec: chains.fallback}, pathFallback, modeFallback
	log.WithError(cause).Warn("graphwire: no serializer, using fallback")
	return info, nil
}

// isRawPrimitive reports whether values of t are written as bare fixed-width
// bytes inside structs, slices and arrays. That holds only while t is left to
// the built-in primitive or enum codec; a registration or a chain match takes
// the ordinary value position instead.
func (r *Registry) isRawPrimitive(t reflect.Type) bool {
	if primitiveSize(t.Kind()) == 0 {
		return false
	}
	info, err := r.getTypeInfo(t)
	if err != nil || info.path != pathBuiltin {
		return false
	}
	switch info.Serializer.(type) {
	case primitiveSerializer, enumSerializer:
		return true
	}
	return false
}

// dropDerivedLocked forgets the cached decisions that depend on other
// entries: copy classifications and the struct, slice and array serializers
// that chose raw fields or shallow copies when they were built.
func (r *Registry) dropDerivedLocked() {
	r.trivial.Range(func(k, _ any) bool {
		r.trivial.Delete(k)
		return true
	})
	r.infos.Range(func(k, v any) bool {
		switch v.(*typeInfo).Serializer.(type) {
		case *structSerializer, *sliceSerializer, *arraySerializer:
			r.infos.Delete(k)
		}
		return true
	})
}

// ============================================================================
// Copy classification
// ============================================================================

// isShallowCopyable reports types whose values can be assigned instead of
// deep copied: primitives, strings, types marked immutable, and structs or
// arrays made only of those.
func (r *Registry) isShallowCopyable(t reflect.Type) bool {
	if v, ok := r.trivial.Load(t); ok {
		return v.(bool)
	}
	res := r.computeShallow(t, map[reflect.Type]bool{})
	r.trivial.Store(t, res)
	return res
}

func (r *Registry) computeShallow(t reflect.Type, visiting map[reflect.Type]bool) bool {
	if _, ok := r.immutable.Load(t); ok {
		return true
	}
	// A registered copier is honored unless it was left nil.
	if v, ok := r.infos.Load(t); ok && v.(*typeInfo).path == pathRegistered {
		fs, ok := v.(*typeInfo).Serializer.(funcSerializer)
		return ok && fs.copier == nil
	}
	if t == timeType || t == uuidType {
		return true
	}
	kind := t.Kind()
	if kind == reflect.String || primitiveSize(kind) > 0 {
		return true
	}
	switch kind {
	case reflect.Array:
		return r.computeShallow(t.Elem(), visiting)
	case reflect.Struct:
		if visiting[t] {
			return false
		}
		visiting[t] = true
		for i := 0; i < t.NumField(); i++ {
			if !r.computeShallow(t.Field(i).Type, visiting) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
